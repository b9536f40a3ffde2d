package services

import (
	"testing"
	"time"

	"festival-system/internal/catalog"
	"festival-system/internal/config"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var (
	testFestivalID = uuid.MustParse("6f9619ff-8b86-4d01-b42d-00cf4fc964ff")
	testAccountID  = uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "debug", Format: "json"})
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &database.DB{DB: db}, mock
}

func intPtr(v int) *int { return &v }

// newTestCatalog собирает каталог с билетом, автобусом и двумя скидками.
func newTestCatalog() *catalog.Catalog {
	festival := &models.Festival{
		FestivalID:   testFestivalID,
		FestivalName: "Test Festival",
		StartDate:    time.Now().Add(30 * 24 * time.Hour),
		EndDate:      time.Now().Add(33 * 24 * time.Hour),
		SalesAreOpen: true,
	}

	purchaseTypes := []*models.PurchaseType{
		{
			PurchaseTypeID: "adult_ticket",
			Description:    "Adult Ticket",
			PriceInCents:   5500,
			MaxAvailable:   intPtr(100),
			MaxPerAccount:  intPtr(4),
			FestivalID:     testFestivalID,
		},
		{
			PurchaseTypeID: "bus_pass",
			Description:    "Bus Pass",
			PriceInCents:   10000,
			FestivalID:     testFestivalID,
		},
	}

	discounts := []*models.Discount{
		{
			DiscountID:     "disc-percent-10",
			DiscountCode:   "SUMMER",
			DiscountType:   models.DiscountTypePercent,
			Amount:         10,
			PurchaseTypeID: "adult_ticket",
		},
		{
			DiscountID:     "disc-fixed-1000",
			DiscountCode:   "BUSDEAL",
			DiscountType:   models.DiscountTypeFixed,
			Amount:         1000,
			PurchaseTypeID: "bus_pass",
		},
	}

	return catalog.New(purchaseTypes, []*models.Festival{festival}, discounts)
}

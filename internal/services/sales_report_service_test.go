package services

import (
	"context"
	"testing"

	"festival-system/internal/apperror"
	"festival-system/internal/config"
	"festival-system/internal/redis"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port(), DB: 0}, newTestLogger())
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func expectSoldCountsByFestival(mock sqlmock.Sqlmock, festivalID uuid.UUID, counts map[string]int) {
	rows := sqlmock.NewRows([]string{"purchase_type_id", "count"})
	for typeID, count := range counts {
		rows.AddRow(typeID, count)
	}
	mock.ExpectQuery("SELECT p.purchase_type_id, COUNT").
		WithArgs(festivalID).
		WillReturnRows(rows)
}

func TestSalesReportService_FestivalSummary(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewSalesReportService(db, nil, newTestCatalog(), newTestLogger(), nil)

	expectSoldCountsByFestival(mock, testFestivalID, map[string]int{"adult_ticket": 3})

	report, err := service.FestivalSummary(context.Background(), testFestivalID)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if report.FestivalName != "Test Festival" {
		t.Errorf("unexpected festival name %q", report.FestivalName)
	}
	// Две строки: adult_ticket с продажами и bus_pass без.
	if len(report.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(report.Lines))
	}
	if report.Lines[0].PurchaseTypeID != "adult_ticket" || report.Lines[0].SoldCount != 3 {
		t.Errorf("unexpected first line: %+v", report.Lines[0])
	}
	if report.Lines[0].RevenueCents != 3*5500 {
		t.Errorf("expected revenue 16500, got %d", report.Lines[0].RevenueCents)
	}
	if report.Lines[1].PurchaseTypeID != "bus_pass" || report.Lines[1].SoldCount != 0 {
		t.Errorf("unexpected second line: %+v", report.Lines[1])
	}
	if report.TotalSoldCount != 3 || report.TotalRevenueCents != 16500 {
		t.Errorf("unexpected totals: %d units, %d cents", report.TotalSoldCount, report.TotalRevenueCents)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSalesReportService_FestivalSummaryUnknownFestival(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	service := NewSalesReportService(db, nil, newTestCatalog(), newTestLogger(), nil)

	_, err := service.FestivalSummary(context.Background(), uuid.New())
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSalesReportService_CachesSummary(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewSalesReportService(db, newTestRedis(t), newTestCatalog(), newTestLogger(), &config.ReportsConfig{CacheTTLMinutes: 5})

	// База опрашивается один раз: второй вызов отвечает из кеша.
	expectSoldCountsByFestival(mock, testFestivalID, map[string]int{"adult_ticket": 1})

	first, err := service.FestivalSummary(context.Background(), testFestivalID)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	second, err := service.FestivalSummary(context.Background(), testFestivalID)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if first.TotalSoldCount != second.TotalSoldCount {
		t.Errorf("cached report differs: %d vs %d", first.TotalSoldCount, second.TotalSoldCount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSalesReportService_InvalidateFestival(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewSalesReportService(db, newTestRedis(t), newTestCatalog(), newTestLogger(), nil)

	expectSoldCountsByFestival(mock, testFestivalID, map[string]int{"adult_ticket": 1})
	if _, err := service.FestivalSummary(context.Background(), testFestivalID); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	service.InvalidateFestival(context.Background(), testFestivalID)

	// После сброса кеша база опрашивается снова.
	expectSoldCountsByFestival(mock, testFestivalID, map[string]int{"adult_ticket": 2})
	report, err := service.FestivalSummary(context.Background(), testFestivalID)
	if err != nil {
		t.Fatalf("call after invalidation failed: %v", err)
	}
	if report.TotalSoldCount != 2 {
		t.Errorf("expected fresh count 2, got %d", report.TotalSoldCount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSalesReportService_OverallSummary(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewSalesReportService(db, nil, newTestCatalog(), newTestLogger(), nil)

	rows := sqlmock.NewRows([]string{"purchase_type_id", "count"}).
		AddRow("adult_ticket", 2).
		AddRow("bus_pass", 1)
	mock.ExpectQuery("SELECT p.purchase_type_id, COUNT").WillReturnRows(rows)

	report, err := service.OverallSummary(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if report.TotalSoldCount != 3 {
		t.Errorf("expected 3 units, got %d", report.TotalSoldCount)
	}
	if report.TotalRevenueCents != 2*5500+10000 {
		t.Errorf("expected revenue 21000, got %d", report.TotalRevenueCents)
	}
}

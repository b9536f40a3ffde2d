package services

import (
	"context"
	"testing"

	"festival-system/internal/apperror"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestFestivalService_SetSalesOpen(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	cat := newTestCatalog()
	service := NewFestivalService(db, cat, newTestLogger())

	mock.ExpectExec("UPDATE festival").
		WithArgs(false, testFestivalID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	festival, err := service.SetSalesOpen(context.Background(), testFestivalID, false)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if festival.SalesAreOpen {
		t.Error("expected sales flag to be off in response")
	}

	// Каталог обновляется вместе с базой.
	got, ok := cat.Festival(testFestivalID)
	if !ok || got.SalesAreOpen {
		t.Error("expected catalog flag to be off")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFestivalService_SetSalesOpenUnknownFestival(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	service := NewFestivalService(db, newTestCatalog(), newTestLogger())

	_, err := service.SetSalesOpen(context.Background(), uuid.New(), true)
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"festival-system/internal/apperror"
	"festival-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestEventService_CreateEvent(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewEventService(db, newTestLogger())

	mock.ExpectExec("INSERT INTO event").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := service.CreateEvent(context.Background(), testAccountID, &models.SaveEventRequest{
		Name:          "Opening Ceremony",
		Description:   "Main stage",
		StartDatetime: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if event.CreatedByAccountID != testAccountID {
		t.Errorf("creator not recorded: %s", event.CreatedByAccountID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventService_CreateEventValidation(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	service := NewEventService(db, newTestLogger())

	start := time.Now().Add(24 * time.Hour)
	earlier := start.Add(-time.Hour)

	cases := []*models.SaveEventRequest{
		{Name: "", StartDatetime: start},
		{Name: "No start"},
		{Name: "Bad range", StartDatetime: start, EndDatetime: &earlier},
	}

	for _, req := range cases {
		if _, err := service.CreateEvent(context.Background(), testAccountID, req); !apperror.Is(err, apperror.KindValidation) {
			t.Errorf("request %+v: expected validation error, got %v", req, err)
		}
	}
}

func TestEventService_UpdateEventForeignCreator(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewEventService(db, newTestLogger())

	eventID := uuid.New()
	otherAccount := uuid.New()

	mock.ExpectQuery("SELECT created_by_account_id").
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"created_by_account_id"}).AddRow(otherAccount))

	_, err := service.UpdateEvent(context.Background(), testAccountID, false, eventID, &models.SaveEventRequest{
		Name:          "Renamed",
		StartDatetime: time.Now().Add(24 * time.Hour),
	})
	if !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestEventService_UpdateEventAsAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewEventService(db, newTestLogger())

	eventID := uuid.New()
	otherAccount := uuid.New()

	mock.ExpectQuery("SELECT created_by_account_id").
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"created_by_account_id"}).AddRow(otherAccount))
	mock.ExpectExec("UPDATE event").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := service.UpdateEvent(context.Background(), testAccountID, true, eventID, &models.SaveEventRequest{
		Name:          "Renamed",
		StartDatetime: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("expected success for admin, got %v", err)
	}
	if event.CreatedByAccountID != otherAccount {
		t.Errorf("creator must not change on update: %s", event.CreatedByAccountID)
	}
}

func TestEventService_ListEventsWithBookmarks(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewEventService(db, newTestLogger())

	eventID := uuid.New()
	rows := sqlmock.NewRows([]string{
		"event_id", "name", "description", "start_datetime", "end_datetime",
		"plaintext_location", "created_by_account_id", "bookmarked",
	}).AddRow(eventID, "Show", "desc", time.Now(), nil, nil, testAccountID, true)

	mock.ExpectQuery("SELECT e.event_id").
		WithArgs(testAccountID).
		WillReturnRows(rows)

	events, err := service.ListEvents(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(events) != 1 || !events[0].Bookmarked {
		t.Errorf("expected 1 bookmarked event, got %+v", events)
	}
}

func TestEventService_BookmarkMissingEvent(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewEventService(db, newTestLogger())

	eventID := uuid.New()

	mock.ExpectExec("INSERT INTO event_bookmark").
		WithArgs(testAccountID, eventID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := service.Bookmark(context.Background(), testAccountID, eventID)
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventService_BookmarkIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewEventService(db, newTestLogger())

	eventID := uuid.New()

	// Повторная отметка: вставка не затронула строк, но событие существует.
	mock.ExpectExec("INSERT INTO event_bookmark").
		WithArgs(testAccountID, eventID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := service.Bookmark(context.Background(), testAccountID, eventID); err != nil {
		t.Fatalf("expected repeat bookmark to succeed, got %v", err)
	}
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"festival-system/internal/apperror"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/google/uuid"
)

// EventService управляет расписанием событий и закладками.
type EventService struct {
	db  *database.DB
	log *logger.Logger
}

// NewEventService создаёт сервис расписания.
func NewEventService(db *database.DB, log *logger.Logger) *EventService {
	return &EventService{db: db, log: log}
}

// ListEvents возвращает все события с флагом закладки для запрашивающего аккаунта.
func (s *EventService) ListEvents(ctx context.Context, accountID uuid.UUID) ([]models.FestivalEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.event_id, e.name, e.description, e.start_datetime, e.end_datetime,
		       e.plaintext_location, e.created_by_account_id,
		       EXISTS (
		           SELECT 1 FROM event_bookmark b
		           WHERE b.event_id = e.event_id AND b.account_id = $1
		       )
		FROM event e
		ORDER BY e.start_datetime
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.FestivalEvent
	for rows.Next() {
		var e models.FestivalEvent
		if err := rows.Scan(&e.EventID, &e.Name, &e.Description, &e.StartDatetime, &e.EndDatetime,
			&e.PlaintextLocation, &e.CreatedByAccountID, &e.Bookmarked); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// CreateEvent создаёт событие от имени аккаунта.
func (s *EventService) CreateEvent(ctx context.Context, accountID uuid.UUID, req *models.SaveEventRequest) (*models.FestivalEvent, error) {
	if err := validateEventRequest(req); err != nil {
		return nil, err
	}

	event := &models.FestivalEvent{
		EventID:            uuid.New(),
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		StartDatetime:      req.StartDatetime,
		EndDatetime:        req.EndDatetime,
		PlaintextLocation:  req.PlaintextLocation,
		CreatedByAccountID: accountID,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event (event_id, name, description, start_datetime, end_datetime, plaintext_location, created_by_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.EventID, event.Name, event.Description, event.StartDatetime, event.EndDatetime,
		event.PlaintextLocation, event.CreatedByAccountID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"event_id":   event.EventID,
		"account_id": accountID,
	}).Info("Event created")

	return event, nil
}

// UpdateEvent обновляет событие. Менять можно только свои события,
// администратору доступны любые.
func (s *EventService) UpdateEvent(ctx context.Context, accountID uuid.UUID, isAdmin bool, eventID uuid.UUID, req *models.SaveEventRequest) (*models.FestivalEvent, error) {
	if err := validateEventRequest(req); err != nil {
		return nil, err
	}

	var createdBy uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT created_by_account_id FROM event WHERE event_id = $1
	`, eventID).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("event not found", err)
		}
		return nil, fmt.Errorf("failed to look up event: %w", err)
	}

	if createdBy != accountID && !isAdmin {
		return nil, apperror.Forbidden("only the creator can edit this event", nil)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE event
		SET name = $1, description = $2, start_datetime = $3, end_datetime = $4, plaintext_location = $5
		WHERE event_id = $6
	`, strings.TrimSpace(req.Name), req.Description, req.StartDatetime, req.EndDatetime, req.PlaintextLocation, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return &models.FestivalEvent{
		EventID:            eventID,
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		StartDatetime:      req.StartDatetime,
		EndDatetime:        req.EndDatetime,
		PlaintextLocation:  req.PlaintextLocation,
		CreatedByAccountID: createdBy,
	}, nil
}

// DeleteEvent удаляет событие вместе с закладками на него.
func (s *EventService) DeleteEvent(ctx context.Context, accountID uuid.UUID, isAdmin bool, eventID uuid.UUID) error {
	var createdBy uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT created_by_account_id FROM event WHERE event_id = $1
	`, eventID).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("event not found", err)
		}
		return fmt.Errorf("failed to look up event: %w", err)
	}

	if createdBy != accountID && !isAdmin {
		return apperror.Forbidden("only the creator can delete this event", nil)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM event WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}

// Bookmark отмечает событие в личном расписании. Повторная отметка не ошибка.
func (s *EventService) Bookmark(ctx context.Context, accountID uuid.UUID, eventID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO event_bookmark (account_id, event_id)
		SELECT $1, event_id FROM event WHERE event_id = $2
		ON CONFLICT (account_id, event_id) DO NOTHING
	`, accountID, eventID)
	if err != nil {
		return fmt.Errorf("failed to bookmark event: %w", err)
	}

	// Вставка ничего не затронула и конфликта не было только если события нет.
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM event WHERE event_id = $1)
		`, eventID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check event: %w", err)
		}
		if !exists {
			return apperror.NotFound("event not found", nil)
		}
	}

	return nil
}

// Unbookmark снимает отметку. Отсутствие отметки не ошибка.
func (s *EventService) Unbookmark(ctx context.Context, accountID uuid.UUID, eventID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM event_bookmark WHERE account_id = $1 AND event_id = $2
	`, accountID, eventID); err != nil {
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}
	return nil
}

func validateEventRequest(req *models.SaveEventRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperror.Validation("event name is required", nil)
	}
	if req.StartDatetime.IsZero() {
		return apperror.Validation("event start time is required", nil)
	}
	if req.EndDatetime != nil && req.EndDatetime.Before(req.StartDatetime) {
		return apperror.Validation("event end time must be after start time", nil)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"festival-system/internal/apperror"
	"festival-system/internal/catalog"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/google/uuid"
)

const maxAttendeesPerRequest = 20

// AttendeeEventProducer публикует события о созданных участниках.
type AttendeeEventProducer interface {
	PublishAttendeesCreated(accountID, festivalID uuid.UUID, count int) error
}

// AttendeeService управляет участниками фестивалей.
type AttendeeService struct {
	db       *database.DB
	catalog  *catalog.Catalog
	producer AttendeeEventProducer
	log      *logger.Logger
}

// NewAttendeeService создаёт сервис участников.
func NewAttendeeService(db *database.DB, cat *catalog.Catalog, producer AttendeeEventProducer, log *logger.Logger) *AttendeeService {
	return &AttendeeService{
		db:       db,
		catalog:  cat,
		producer: producer,
		log:      log,
	}
}

// CreateAttendees создаёт пачку участников одной транзакцией.
// Пустой список отклоняется, имена обязательны.
func (s *AttendeeService) CreateAttendees(ctx context.Context, accountID uuid.UUID, req *models.CreateAttendeesRequest) ([]models.Attendee, error) {
	if len(req.Attendees) == 0 {
		return nil, apperror.Validation("at least one attendee is required", nil)
	}
	if len(req.Attendees) > maxAttendeesPerRequest {
		return nil, apperror.Validation(fmt.Sprintf("no more than %d attendees per request", maxAttendeesPerRequest), nil)
	}
	if _, ok := s.catalog.Festival(req.FestivalID); !ok {
		return nil, apperror.NotFound("festival not found", nil)
	}
	for i, a := range req.Attendees {
		if strings.TrimSpace(a.Name) == "" {
			return nil, apperror.Validation(fmt.Sprintf("attendee %d: name is required", i+1), nil)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	created := make([]models.Attendee, 0, len(req.Attendees))
	for _, input := range req.Attendees {
		attendee := models.Attendee{
			AttendeeID:          uuid.New(),
			FestivalID:          req.FestivalID,
			AssociatedAccountID: accountID,
			Name:                strings.TrimSpace(input.Name),
			Age:                 input.Age,
			Diet:                input.Diet,
			DiscordHandle:       input.DiscordHandle,
			TwitterHandle:       input.TwitterHandle,
			PlanningToCamp:      input.PlanningToCamp,
			Notes:               input.Notes,
			CreatedAt:           now,
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendee (attendee_id, festival_id, associated_account_id, name, age, diet,
			                      discord_handle, twitter_handle, planning_to_camp, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, attendee.AttendeeID, attendee.FestivalID, attendee.AssociatedAccountID, attendee.Name,
			attendee.Age, attendee.Diet, attendee.DiscordHandle, attendee.TwitterHandle,
			attendee.PlanningToCamp, attendee.Notes, attendee.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert attendee: %w", err)
		}

		created = append(created, attendee)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit attendees: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"account_id":  accountID,
		"festival_id": req.FestivalID,
		"count":       len(created),
	}).Info("Attendees created")

	if s.producer != nil {
		if err := s.producer.PublishAttendeesCreated(accountID, req.FestivalID, len(created)); err != nil {
			s.log.WithError(err).Warn("Failed to publish attendees created event")
		}
	}

	return created, nil
}

// ListAttendees возвращает участников, привязанных к аккаунту.
func (s *AttendeeService) ListAttendees(ctx context.Context, accountID uuid.UUID) ([]models.Attendee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attendee_id, festival_id, associated_account_id, name, age, diet,
		       discord_handle, twitter_handle, planning_to_camp, notes, created_at
		FROM attendee
		WHERE associated_account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []models.Attendee
	for rows.Next() {
		var a models.Attendee
		if err := rows.Scan(&a.AttendeeID, &a.FestivalID, &a.AssociatedAccountID, &a.Name, &a.Age,
			&a.Diet, &a.DiscordHandle, &a.TwitterHandle, &a.PlanningToCamp, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}

	return attendees, nil
}

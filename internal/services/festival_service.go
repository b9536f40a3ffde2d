package services

import (
	"context"
	"fmt"

	"festival-system/internal/apperror"
	"festival-system/internal/catalog"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/google/uuid"
)

// FestivalService управляет флагом продаж фестиваля. База и каталог в памяти
// обновляются вместе: проверки допустимости читают каталог, база переживает рестарт.
type FestivalService struct {
	db      *database.DB
	catalog *catalog.Catalog
	log     *logger.Logger
}

// NewFestivalService создаёт сервис фестивалей.
func NewFestivalService(db *database.DB, cat *catalog.Catalog, log *logger.Logger) *FestivalService {
	return &FestivalService{db: db, catalog: cat, log: log}
}

// SetSalesOpen переключает флаг продаж фестиваля.
func (s *FestivalService) SetSalesOpen(ctx context.Context, festivalID uuid.UUID, open bool) (*models.Festival, error) {
	if _, ok := s.catalog.Festival(festivalID); !ok {
		return nil, apperror.NotFound("festival not found", nil)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE festival SET sales_are_open = $1 WHERE festival_id = $2
	`, open, festivalID); err != nil {
		return nil, fmt.Errorf("failed to update sales flag: %w", err)
	}

	s.catalog.SetSalesOpen(festivalID, open)

	s.log.WithFields(map[string]interface{}{
		"festival_id":    festivalID,
		"sales_are_open": open,
	}).Info("Festival sales flag updated")

	festival, _ := s.catalog.Festival(festivalID)
	return festival, nil
}

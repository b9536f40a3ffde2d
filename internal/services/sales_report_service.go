package services

import (
	"context"
	"fmt"
	"time"

	"festival-system/internal/apperror"
	"festival-system/internal/catalog"
	"festival-system/internal/config"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"
	"festival-system/internal/redis"

	"github.com/google/uuid"
)

const defaultReportCacheTTL = 5 * time.Minute

// SalesReport агрегирует продажи по фестивалю.
type SalesReport struct {
	FestivalID        uuid.UUID                 `json:"festival_id"`
	FestivalName      string                    `json:"festival_name"`
	Lines             []models.SalesSummaryLine `json:"lines"`
	TotalSoldCount    int                       `json:"total_sold_count"`
	TotalRevenueCents int64                     `json:"total_revenue_cents"`
	GeneratedAt       time.Time                 `json:"generated_at"`
}

// SalesReportService строит сводки продаж и кеширует тяжёлые выборки.
type SalesReportService struct {
	db       *database.DB
	redis    *redis.Client
	catalog  *catalog.Catalog
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewSalesReportService создаёт сервис отчётов по продажам.
func NewSalesReportService(db *database.DB, redisClient *redis.Client, cat *catalog.Catalog, log *logger.Logger, cfg *config.ReportsConfig) *SalesReportService {
	cacheTTL := defaultReportCacheTTL
	if cfg != nil && cfg.CacheTTLMinutes > 0 {
		cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
	}

	return &SalesReportService{
		db:       db,
		redis:    redisClient,
		catalog:  cat,
		log:      log,
		cacheTTL: cacheTTL,
	}
}

// FestivalSummary возвращает сводку по одному фестивалю.
// Выручка считается по прейскуранту без учёта индивидуальных скидок:
// суммы с учётом скидок живут на стороне платёжного процессора.
func (s *SalesReportService) FestivalSummary(ctx context.Context, festivalID uuid.UUID) (*SalesReport, error) {
	festival, ok := s.catalog.Festival(festivalID)
	if !ok {
		return nil, apperror.NotFound("festival not found", nil)
	}

	cacheKey := redis.GenerateKey(redis.KeyPrefixReports, fmt.Sprintf("festival:%s", festivalID))
	var cached SalesReport
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	counts, err := s.soldCounts(ctx, &festivalID)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{
		FestivalID:   festivalID,
		FestivalName: festival.FestivalName,
		GeneratedAt:  time.Now(),
	}
	s.fillLines(report, counts, &festivalID)

	s.saveToCache(ctx, cacheKey, report)
	return report, nil
}

// OverallSummary возвращает сводку по всем типам покупок.
func (s *SalesReportService) OverallSummary(ctx context.Context) (*SalesReport, error) {
	cacheKey := redis.GenerateKey(redis.KeyPrefixReports, "overall")
	var cached SalesReport
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	counts, err := s.soldCounts(ctx, nil)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{GeneratedAt: time.Now()}
	s.fillLines(report, counts, nil)

	s.saveToCache(ctx, cacheKey, report)
	return report, nil
}

// soldCounts возвращает число проданных единиц по типам. Фильтр по
// фестивалю опционален.
func (s *SalesReportService) soldCounts(ctx context.Context, festivalID *uuid.UUID) (map[string]int, error) {
	query := `
		SELECT p.purchase_type_id, COUNT(*)
		FROM purchase p
	`
	args := []interface{}{}
	if festivalID != nil {
		query += `
		JOIN purchase_type pt ON pt.purchase_type_id = p.purchase_type_id
		WHERE pt.festival_id = $1
		`
		args = append(args, *festivalID)
	}
	query += `GROUP BY p.purchase_type_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count sold units: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typeID string
		var count int
		if err := rows.Scan(&typeID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan sold count: %w", err)
		}
		counts[typeID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sold counts: %w", err)
	}

	return counts, nil
}

// fillLines строит строки отчёта по каталогу, включая типы без продаж.
func (s *SalesReportService) fillLines(report *SalesReport, counts map[string]int, festivalID *uuid.UUID) {
	for _, pt := range s.catalog.PurchaseTypes() {
		if festivalID != nil && pt.FestivalID != *festivalID {
			continue
		}
		sold := counts[pt.PurchaseTypeID]
		line := models.SalesSummaryLine{
			PurchaseTypeID: pt.PurchaseTypeID,
			Description:    pt.Description,
			SoldCount:      sold,
			MaxAvailable:   pt.MaxAvailable,
			RevenueCents:   int64(sold) * pt.PriceInCents,
		}
		report.Lines = append(report.Lines, line)
		report.TotalSoldCount += sold
		report.TotalRevenueCents += line.RevenueCents
	}
}

// InvalidateFestival сбрасывает кеш отчётов после записи новых покупок.
func (s *SalesReportService) InvalidateFestival(ctx context.Context, festivalID uuid.UUID) {
	if s.redis == nil {
		return
	}
	keys := []string{
		redis.GenerateKey(redis.KeyPrefixReports, fmt.Sprintf("festival:%s", festivalID)),
		redis.GenerateKey(redis.KeyPrefixReports, "overall"),
	}
	for _, key := range keys {
		if err := s.redis.Delete(ctx, key); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("Failed to invalidate report cache")
		}
	}
}

// InvalidateAll сбрасывает все кешированные отчёты. Используется обработчиком
// событий о покупках, когда фестиваль из события неизвестен.
func (s *SalesReportService) InvalidateAll(ctx context.Context) {
	if s.redis == nil {
		return
	}

	seen := make(map[uuid.UUID]struct{})
	for _, pt := range s.catalog.PurchaseTypes() {
		if _, ok := seen[pt.FestivalID]; ok {
			continue
		}
		seen[pt.FestivalID] = struct{}{}
		s.InvalidateFestival(ctx, pt.FestivalID)
	}

	overall := redis.GenerateKey(redis.KeyPrefixReports, "overall")
	if err := s.redis.Delete(ctx, overall); err != nil {
		s.log.WithError(err).WithField("key", overall).Warn("Failed to invalidate report cache")
	}
}

func (s *SalesReportService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}

	if err := s.redis.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (s *SalesReportService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache sales report")
	}
}

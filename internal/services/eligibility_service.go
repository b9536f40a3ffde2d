package services

import (
	"context"
	"sort"
	"time"

	"festival-system/internal/catalog"
	"festival-system/internal/logger"

	"github.com/google/uuid"
)

// EligibilityService проверяет допустимость запрошенного набора покупок:
// окно продаж фестиваля, глобальные лимиты и лимиты на аккаунт.
// Проверка отказывает весь набор целиком при первом нарушении.
type EligibilityService struct {
	catalog *catalog.Catalog
	ledger  *LedgerService
	log     *logger.Logger
	now     func() time.Time
}

// NewEligibilityService создаёт сервис проверки допустимости.
func NewEligibilityService(cat *catalog.Catalog, ledger *LedgerService, log *logger.Logger) *EligibilityService {
	return &EligibilityService{
		catalog: cat,
		ledger:  ledger,
		log:     log,
		now:     time.Now,
	}
}

// Check проверяет весь запрошенный набор. Возвращает *Rejection при отказе.
// Счётчики читаются по одному групповому запросу на срез (глобальный и
// по аккаунту), а не по запросу на каждый тип: проверка видит один снимок.
// Побочных эффектов нет; окончательная проверка лимитов повторяется на этапе
// фиксации платежа, так как между проверкой и оплатой есть гонка.
func (s *EligibilityService) Check(ctx context.Context, accountID uuid.UUID, counts map[string]int) error {
	typeIDs := make([]string, 0, len(counts))
	for purchaseTypeID, count := range counts {
		if count > 0 {
			typeIDs = append(typeIDs, purchaseTypeID)
		}
	}
	if len(typeIDs) == 0 {
		return nil
	}
	sort.Strings(typeIDs)

	globalCounts, err := s.ledger.GlobalCounts(ctx)
	if err != nil {
		return err
	}
	accountCounts, err := s.ledger.AccountCounts(ctx, accountID)
	if err != nil {
		return err
	}

	now := s.now()
	for _, purchaseTypeID := range typeIDs {
		requested := counts[purchaseTypeID]

		purchaseType, ok := s.catalog.PurchaseType(purchaseTypeID)
		if !ok {
			return newRejection(RejectionInvalidPurchaseType, purchaseTypeID)
		}

		festival, ok := s.catalog.Festival(purchaseType.FestivalID)
		if !ok {
			return newRejection(RejectionInvalidPurchaseType, purchaseTypeID)
		}

		// Фестиваль уже начался — продажи закрыты независимо от флага.
		if festival.StartDate.Before(now) {
			return newRejection(RejectionSalesClosed, purchaseTypeID)
		}
		if !festival.SalesAreOpen {
			return newRejection(RejectionSalesClosed, purchaseTypeID)
		}

		if purchaseType.MaxAvailable != nil && globalCounts[purchaseTypeID]+requested > *purchaseType.MaxAvailable {
			return newRejection(RejectionGlobalCapExceeded, purchaseTypeID)
		}

		if purchaseType.MaxPerAccount != nil && accountCounts[purchaseTypeID]+requested > *purchaseType.MaxPerAccount {
			return newRejection(RejectionAccountCapExceeded, purchaseTypeID)
		}
	}

	return nil
}

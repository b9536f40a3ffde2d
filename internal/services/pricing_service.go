package services

import (
	"math"
	"sort"
	"strings"

	"festival-system/internal/catalog"
	"festival-system/internal/models"
)

// PricingService рассчитывает стоимость набора покупок со скидками.
// Вся арифметика ведётся в целых центах.
type PricingService struct {
	catalog *catalog.Catalog
}

// NewPricingService создаёт сервис расчёта стоимости.
func NewPricingService(cat *catalog.Catalog) *PricingService {
	return &PricingService{catalog: cat}
}

// Sanitize приводит количества к безопасному виду: отрицательные и NaN — ноль,
// дробные округляются вниз. Операция идемпотентна.
func (s *PricingService) Sanitize(counts map[string]float64) map[string]int {
	sanitized := make(map[string]int, len(counts))
	for purchaseTypeID, raw := range counts {
		if math.IsNaN(raw) || raw < 0 {
			sanitized[purchaseTypeID] = 0
			continue
		}
		sanitized[purchaseTypeID] = int(math.Floor(raw))
	}
	return sanitized
}

// ResolveDiscounts находит скидки по кодам. Коды сравниваются без учёта
// регистра; дубликаты после приведения к верхнему регистру отбрасываются.
func (s *PricingService) ResolveDiscounts(codes []string) []*models.Discount {
	seen := make(map[string]bool, len(codes))
	var discounts []*models.Discount
	for _, code := range codes {
		upper := strings.ToUpper(strings.TrimSpace(code))
		if upper == "" || seen[upper] {
			continue
		}
		seen[upper] = true
		discounts = append(discounts, s.catalog.DiscountsByCode(upper)...)
	}
	return discounts
}

// Breakdown считает построчную стоимость для ненулевых количеств.
// Для каждой строки сначала применяются процентные скидки (сумма процентов,
// не больше 100), затем фиксированные, в порядке идентификатора скидки.
// Итог по строке не опускается ниже нуля.
func (s *PricingService) Breakdown(counts map[string]int, discounts []*models.Discount) ([]models.PurchaseLine, error) {
	typeIDs := make([]string, 0, len(counts))
	for purchaseTypeID, count := range counts {
		if count > 0 {
			typeIDs = append(typeIDs, purchaseTypeID)
		}
	}
	sort.Strings(typeIDs)

	var lines []models.PurchaseLine
	for _, purchaseTypeID := range typeIDs {
		purchaseType, ok := s.catalog.PurchaseType(purchaseTypeID)
		if !ok {
			return nil, newRejection(RejectionInvalidPurchaseType, purchaseTypeID)
		}

		quantity := counts[purchaseTypeID]
		lineTotal := purchaseType.PriceInCents * int64(quantity)

		applicable := applicableDiscounts(discounts, purchaseTypeID)

		var percentTotal int64
		for _, d := range applicable {
			if d.DiscountType == models.DiscountTypePercent && d.Amount > 0 {
				percentTotal += d.Amount
			}
		}
		if percentTotal > 100 {
			percentTotal = 100
		}
		discounted := lineTotal - lineTotal*percentTotal/100

		for _, d := range applicable {
			if d.DiscountType == models.DiscountTypeFixed && d.Amount > 0 {
				discounted -= d.Amount
			}
		}
		if discounted < 0 {
			discounted = 0
		}

		lines = append(lines, models.PurchaseLine{
			PurchaseTypeID:       purchaseTypeID,
			Description:          purchaseType.Description,
			Quantity:             quantity,
			UnitPriceCents:       purchaseType.PriceInCents,
			DiscountedPriceCents: discounted,
		})
	}

	return lines, nil
}

// Total суммирует итог по строкам.
func (s *PricingService) Total(lines []models.PurchaseLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.DiscountedPriceCents
	}
	return total
}

// applicableDiscounts отбирает скидки для типа покупки в детерминированном порядке.
func applicableDiscounts(discounts []*models.Discount, purchaseTypeID string) []*models.Discount {
	var applicable []*models.Discount
	for _, d := range discounts {
		if d.PurchaseTypeID == purchaseTypeID {
			applicable = append(applicable, d)
		}
	}
	sort.Slice(applicable, func(i, j int) bool { return applicable[i].DiscountID < applicable[j].DiscountID })
	return applicable
}

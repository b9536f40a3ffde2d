package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/google/uuid"
)

// Catalog хранит справочные таблицы (типы покупок, фестивали, скидки),
// загруженные один раз на старте процесса. Конструируется явно и передаётся
// компонентам, глобального состояния нет. Изменяем только флаг продаж фестиваля.
type Catalog struct {
	mu            sync.RWMutex
	purchaseTypes map[string]*models.PurchaseType
	festivals     map[uuid.UUID]*models.Festival
	discounts     map[string][]*models.Discount // ключ — код скидки в верхнем регистре
}

// Load читает справочные таблицы из базы данных.
func Load(ctx context.Context, db *database.DB, log *logger.Logger) (*Catalog, error) {
	c := &Catalog{
		purchaseTypes: make(map[string]*models.PurchaseType),
		festivals:     make(map[uuid.UUID]*models.Festival),
		discounts:     make(map[string][]*models.Discount),
	}

	rows, err := db.QueryContext(ctx, `
		SELECT purchase_type_id, description, price_in_cents, max_available, max_per_account, festival_id
		FROM purchase_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		pt := &models.PurchaseType{}
		if err := rows.Scan(&pt.PurchaseTypeID, &pt.Description, &pt.PriceInCents, &pt.MaxAvailable, &pt.MaxPerAccount, &pt.FestivalID); err != nil {
			return nil, fmt.Errorf("failed to scan purchase type: %w", err)
		}
		c.purchaseTypes[pt.PurchaseTypeID] = pt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase types: %w", err)
	}

	festivalRows, err := db.QueryContext(ctx, `
		SELECT festival_id, festival_name, start_date, end_date, sales_are_open
		FROM festival
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load festivals: %w", err)
	}
	defer festivalRows.Close()
	for festivalRows.Next() {
		f := &models.Festival{}
		if err := festivalRows.Scan(&f.FestivalID, &f.FestivalName, &f.StartDate, &f.EndDate, &f.SalesAreOpen); err != nil {
			return nil, fmt.Errorf("failed to scan festival: %w", err)
		}
		c.festivals[f.FestivalID] = f
	}
	if err := festivalRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate festivals: %w", err)
	}

	discountRows, err := db.QueryContext(ctx, `
		SELECT discount_id, discount_code, discount_type, amount, purchase_type_id
		FROM discount
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load discounts: %w", err)
	}
	defer discountRows.Close()
	for discountRows.Next() {
		d := &models.Discount{}
		if err := discountRows.Scan(&d.DiscountID, &d.DiscountCode, &d.DiscountType, &d.Amount, &d.PurchaseTypeID); err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		key := strings.ToUpper(d.DiscountCode)
		c.discounts[key] = append(c.discounts[key], d)
	}
	if err := discountRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discounts: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"purchase_types": len(c.purchaseTypes),
		"festivals":      len(c.festivals),
		"discounts":      len(c.discounts),
	}).Info("Reference catalog loaded")

	return c, nil
}

// New собирает каталог из готовых справочников (используется в тестах).
func New(purchaseTypes []*models.PurchaseType, festivals []*models.Festival, discounts []*models.Discount) *Catalog {
	c := &Catalog{
		purchaseTypes: make(map[string]*models.PurchaseType),
		festivals:     make(map[uuid.UUID]*models.Festival),
		discounts:     make(map[string][]*models.Discount),
	}
	for _, pt := range purchaseTypes {
		c.purchaseTypes[pt.PurchaseTypeID] = pt
	}
	for _, f := range festivals {
		c.festivals[f.FestivalID] = f
	}
	for _, d := range discounts {
		key := strings.ToUpper(d.DiscountCode)
		c.discounts[key] = append(c.discounts[key], d)
	}
	return c
}

// PurchaseType возвращает тип покупки по идентификатору.
func (c *Catalog) PurchaseType(id string) (*models.PurchaseType, bool) {
	pt, ok := c.purchaseTypes[id]
	return pt, ok
}

// PurchaseTypes возвращает все типы покупок, отсортированные по идентификатору.
func (c *Catalog) PurchaseTypes() []*models.PurchaseType {
	out := make([]*models.PurchaseType, 0, len(c.purchaseTypes))
	for _, pt := range c.purchaseTypes {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseTypeID < out[j].PurchaseTypeID })
	return out
}

// Festival возвращает фестиваль по идентификатору.
func (c *Catalog) Festival(id uuid.UUID) (*models.Festival, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.festivals[id]
	if !ok {
		return nil, false
	}
	copied := *f
	return &copied, true
}

// SetSalesOpen переключает флаг продаж фестиваля.
func (c *Catalog) SetSalesOpen(id uuid.UUID, open bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.festivals[id]
	if !ok {
		return false
	}
	f.SalesAreOpen = open
	return true
}

// DiscountsByCode возвращает скидки по коду без учёта регистра.
func (c *Catalog) DiscountsByCode(code string) []*models.Discount {
	return c.discounts[strings.ToUpper(code)]
}

// DiscountByID возвращает скидку по идентификатору.
func (c *Catalog) DiscountByID(id string) (*models.Discount, bool) {
	for _, list := range c.discounts {
		for _, d := range list {
			if d.DiscountID == id {
				return d, true
			}
		}
	}
	return nil, false
}

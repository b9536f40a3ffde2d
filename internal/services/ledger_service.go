package services

import (
	"context"
	"database/sql"
	"fmt"

	"festival-system/internal/database"
	"festival-system/internal/logger"

	"github.com/google/uuid"
)

// LedgerService считает уже проданные единицы по таблице purchase.
// Источник истины — сами строки покупок, отдельных счётчиков нет.
type LedgerService struct {
	db  *database.DB
	log *logger.Logger
}

// NewLedgerService создаёт сервис подсчёта продаж.
func NewLedgerService(db *database.DB, log *logger.Logger) *LedgerService {
	return &LedgerService{db: db, log: log}
}

// GlobalCounts возвращает количество проданных единиц по каждому типу покупки.
// Один групповой запрос, чтобы все типы читались из одного снимка.
func (s *LedgerService) GlobalCounts(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT purchase_type_id, COUNT(*)
		FROM purchase
		GROUP BY purchase_type_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}
	defer rows.Close()

	return scanCounts(rows)
}

// AccountCounts возвращает количество купленного аккаунтом по каждому типу.
func (s *LedgerService) AccountCounts(ctx context.Context, accountID uuid.UUID) (map[string]int, error) {
	query := `
		SELECT purchase_type_id, COUNT(*)
		FROM purchase
		WHERE owned_by_account_id = $1
		GROUP BY purchase_type_id
	`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count account purchases: %w", err)
	}
	defer rows.Close()

	return scanCounts(rows)
}

// CountForTypeTx считает проданное по одному типу внутри транзакции.
// Используется при повторной проверке лимитов на этапе фиксации платежа.
func (s *LedgerService) CountForTypeTx(ctx context.Context, tx *sql.Tx, purchaseTypeID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase WHERE purchase_type_id = $1`, purchaseTypeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count purchases for type %s: %w", purchaseTypeID, err)
	}
	return count, nil
}

// AccountCountForTypeTx считает купленное аккаунтом по одному типу внутри транзакции.
func (s *LedgerService) AccountCountForTypeTx(ctx context.Context, tx *sql.Tx, purchaseTypeID string, accountID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase WHERE purchase_type_id = $1 AND owned_by_account_id = $2`,
		purchaseTypeID, accountID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count account purchases for type %s: %w", purchaseTypeID, err)
	}
	return count, nil
}

func scanCounts(rows *sql.Rows) (map[string]int, error) {
	counts := make(map[string]int)
	for rows.Next() {
		var purchaseTypeID string
		var count int
		if err := rows.Scan(&purchaseTypeID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan purchase count: %w", err)
		}
		counts[purchaseTypeID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase counts: %w", err)
	}
	return counts, nil
}

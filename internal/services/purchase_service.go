package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"festival-system/internal/apperror"
	"festival-system/internal/catalog"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/google/uuid"
)

// PaymentIntentCreator создаёт платёжное намерение у внешнего процессора.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, metadata map[string]string) (string, error)
}

// ReceiptMailer отправляет покупателю письмо-квитанцию.
type ReceiptMailer interface {
	SendReceipt(ctx context.Context, to string, lines []models.PurchaseLine, totalCents int64, discounts []*models.Discount) error
}

// PurchaseEventProducer публикует события жизненного цикла покупки.
type PurchaseEventProducer interface {
	PublishPurchaseRecorded(paymentIntentID string, accountID *uuid.UUID, counts map[string]int) error
	PublishFulfillmentFailed(paymentIntentID, purchaseTypeID, reason string) error
}

// PurchaseService управляет покупками: создание платёжного намерения и
// фиксация покупок после успешного платежа.
type PurchaseService struct {
	db          *database.DB
	log         *logger.Logger
	catalog     *catalog.Catalog
	ledger      *LedgerService
	eligibility *EligibilityService
	pricing     *PricingService
	payments    PaymentIntentCreator
	mailer      ReceiptMailer
	producer    PurchaseEventProducer
}

// NewPurchaseService создаёт сервис покупок.
func NewPurchaseService(
	db *database.DB,
	log *logger.Logger,
	cat *catalog.Catalog,
	ledger *LedgerService,
	eligibility *EligibilityService,
	pricing *PricingService,
	payments PaymentIntentCreator,
	mailer ReceiptMailer,
	producer PurchaseEventProducer,
) *PurchaseService {
	return &PurchaseService{
		db:          db,
		log:         log,
		catalog:     cat,
		ledger:      ledger,
		eligibility: eligibility,
		pricing:     pricing,
		payments:    payments,
		mailer:      mailer,
		producer:    producer,
	}
}

// CreateIntent проверяет допустимость набора покупок, считает сумму и создаёт
// платёжное намерение. Состав заказа кодируется в метаданные намерения:
// процессор — единственное хранилище заказа до момента фиксации.
// Деньги здесь не двигаются и строки purchase не создаются.
func (s *PurchaseService) CreateIntent(ctx context.Context, accountID uuid.UUID, rawCounts map[string]float64, discountCodes []string) (string, error) {
	allowed, err := s.allowedToPurchase(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", newRejection(RejectionNotAuthorized, "")
	}

	counts := s.pricing.Sanitize(rawCounts)

	if err := s.eligibility.Check(ctx, accountID, counts); err != nil {
		return "", err
	}

	discounts := s.pricing.ResolveDiscounts(discountCodes)

	lines, err := s.pricing.Breakdown(counts, discounts)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", apperror.Validation("no purchases requested", nil)
	}

	total := s.pricing.Total(lines)
	if total <= 0 {
		return "", apperror.Validation("purchase total must be positive", nil)
	}

	discountIDs := make([]string, 0, len(discounts))
	for _, d := range discounts {
		discountIDs = append(discountIDs, d.DiscountID)
	}
	sort.Strings(discountIDs)

	metadata := encodeIntentMetadata(accountID, discountIDs, counts)

	clientSecret, err := s.payments.CreatePaymentIntent(ctx, total, metadata)
	if err != nil {
		return "", fmt.Errorf("payment processor error: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"account_id":   accountID,
		"amount_cents": total,
	}).Info("Payment intent created")

	return clientSecret, nil
}

// RecordFulfillment фиксирует покупки после успешного платежа. Вызывается из
// вебхука процессора, поэтому обязан быть идемпотентным по payment intent:
// повторная доставка того же уведомления не создаёт новых строк.
//
// Все вставки одного платежа идут в одной транзакции. Лимиты проверяются
// повторно под advisory-блокировкой типа покупки: два конкурентных намерения
// могли пройти предварительную проверку одновременно. Если лимит всё же
// превышен, фиксация отменяется целиком, публикуется событие для поддержки
// (возврат средств делается вручную), и процессору возвращается ошибка.
func (s *PurchaseService) RecordFulfillment(ctx context.Context, paymentIntentID string, metadata map[string]string) error {
	decoded, err := decodeIntentMetadata(metadata)
	if err != nil {
		return apperror.Validation("malformed intent metadata", err)
	}
	if len(decoded.Counts) == 0 {
		s.log.WithField("payment_intent", paymentIntentID).Warn("Charge succeeded with no purchases in metadata")
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Идемпотентность: если этот платёж уже зафиксирован, повторная доставка
	// уведомления подтверждается без побочных эффектов.
	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase WHERE stripe_payment_intent = $1`, paymentIntentID,
	).Scan(&existing); err != nil {
		return fmt.Errorf("failed to check for duplicate fulfillment: %w", err)
	}
	if existing > 0 {
		s.log.WithField("payment_intent", paymentIntentID).Info("Duplicate fulfillment notification, skipping")
		return nil
	}

	typeIDs := make([]string, 0, len(decoded.Counts))
	for purchaseTypeID := range decoded.Counts {
		typeIDs = append(typeIDs, purchaseTypeID)
	}
	sort.Strings(typeIDs)

	now := time.Now()
	for _, purchaseTypeID := range typeIDs {
		count := decoded.Counts[purchaseTypeID]

		purchaseType, ok := s.catalog.PurchaseType(purchaseTypeID)
		if !ok {
			return apperror.Validation(fmt.Sprintf("unknown purchase type in metadata: %s", purchaseTypeID), nil)
		}

		// Сериализуем конкурентные фиксации одного типа покупки на время
		// транзакции, чтобы проверка лимита и вставки были атомарны.
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, purchaseTypeID,
		); err != nil {
			return fmt.Errorf("failed to lock purchase type %s: %w", purchaseTypeID, err)
		}

		if purchaseType.MaxAvailable != nil {
			sold, err := s.ledger.CountForTypeTx(ctx, tx, purchaseTypeID)
			if err != nil {
				return err
			}
			if sold+count > *purchaseType.MaxAvailable {
				return s.failFulfillment(paymentIntentID, purchaseTypeID, "global cap exceeded at fulfillment")
			}
		}

		if purchaseType.MaxPerAccount != nil && decoded.AccountID != nil {
			owned, err := s.ledger.AccountCountForTypeTx(ctx, tx, purchaseTypeID, *decoded.AccountID)
			if err != nil {
				return err
			}
			if owned+count > *purchaseType.MaxPerAccount {
				return s.failFulfillment(paymentIntentID, purchaseTypeID, "account cap exceeded at fulfillment")
			}
		}

		// Одна строка на единицу: каждая единица независимо адресуется и
		// может быть передана отдельно.
		for i := 0; i < count; i++ {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO purchase (purchase_id, purchase_type_id, owned_by_account_id, stripe_payment_intent, purchased_on)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New(), purchaseTypeID, decoded.AccountID, paymentIntentID, now); err != nil {
				return fmt.Errorf("failed to insert purchase: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fulfillment: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"payment_intent": paymentIntentID,
		"counts":         decoded.Counts,
	}).Info("Purchases recorded")

	s.afterFulfillment(ctx, paymentIntentID, decoded)

	return nil
}

// failFulfillment помечает сорванную фиксацию: платёж уже прошёл, поэтому
// событие уходит в поддержку для полного возврата средств.
func (s *PurchaseService) failFulfillment(paymentIntentID, purchaseTypeID, reason string) error {
	s.log.WithFields(map[string]interface{}{
		"payment_intent":   paymentIntentID,
		"purchase_type_id": purchaseTypeID,
		"reason":           reason,
	}).Error("Fulfillment aborted: charge succeeded but purchases were not recorded")

	if s.producer != nil {
		if err := s.producer.PublishFulfillmentFailed(paymentIntentID, purchaseTypeID, reason); err != nil {
			s.log.WithError(err).Error("Failed to publish fulfillment failure event")
		}
	}

	return fmt.Errorf("fulfillment aborted for payment intent %s: %s (%s)", paymentIntentID, reason, purchaseTypeID)
}

// afterFulfillment выполняет действия после коммита: квитанция и событие.
// Сбои здесь не откатывают уже записанные покупки.
func (s *PurchaseService) afterFulfillment(ctx context.Context, paymentIntentID string, decoded *IntentMetadata) {
	if s.producer != nil {
		if err := s.producer.PublishPurchaseRecorded(paymentIntentID, decoded.AccountID, decoded.Counts); err != nil {
			s.log.WithError(err).Error("Failed to publish purchase recorded event")
		}
	}

	if s.mailer == nil || decoded.AccountID == nil {
		return
	}

	var email string
	err := s.db.QueryRowContext(ctx,
		`SELECT email_address FROM account WHERE account_id = $1`, *decoded.AccountID,
	).Scan(&email)
	if err != nil {
		s.log.WithError(err).WithField("account_id", decoded.AccountID).Error("Failed to look up buyer email for receipt")
		return
	}

	discounts := make([]*models.Discount, 0, len(decoded.DiscountIDs))
	for _, id := range decoded.DiscountIDs {
		if d, ok := s.catalog.DiscountByID(id); ok {
			discounts = append(discounts, d)
		}
	}

	lines, err := s.pricing.Breakdown(decoded.Counts, discounts)
	if err != nil {
		s.log.WithError(err).Error("Failed to rebuild receipt breakdown")
		return
	}

	if err := s.mailer.SendReceipt(ctx, email, lines, s.pricing.Total(lines), discounts); err != nil {
		s.log.WithError(err).WithField("payment_intent", paymentIntentID).Error("Failed to send receipt email")
	}
}

// allowedToPurchase проверяет реферальный статус аккаунта: покупка доступна
// затравочным аккаунтам, принятым заявкам и аккаунтам с применённым инвайт-кодом.
func (s *PurchaseService) allowedToPurchase(ctx context.Context, accountID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM account a
			LEFT JOIN invite_code ic ON ic.used_by_account_id = a.account_id
			WHERE a.account_id = $1
			  AND (a.is_seed_account OR COALESCE(a.is_application_accepted, false) OR ic.code IS NOT NULL)
		)
	`

	var allowed bool
	if err := s.db.QueryRowContext(ctx, query, accountID).Scan(&allowed); err != nil {
		return false, fmt.Errorf("failed to check referral status: %w", err)
	}
	return allowed, nil
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

type fakePaymentCreator struct {
	lastAmount   int64
	lastMetadata map[string]string
	err          error
}

func (f *fakePaymentCreator) CreatePaymentIntent(ctx context.Context, amountCents int64, metadata map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastAmount = amountCents
	f.lastMetadata = metadata
	return "pi_test_secret", nil
}

type fakeEventProducer struct {
	recorded []string
	failed   []string
}

func (f *fakeEventProducer) PublishPurchaseRecorded(paymentIntentID string, accountID *uuid.UUID, counts map[string]int) error {
	f.recorded = append(f.recorded, paymentIntentID)
	return nil
}

func (f *fakeEventProducer) PublishFulfillmentFailed(paymentIntentID, purchaseTypeID, reason string) error {
	f.failed = append(f.failed, paymentIntentID+":"+purchaseTypeID)
	return nil
}

func newTestPurchaseService(t *testing.T) (*PurchaseService, sqlmock.Sqlmock, *fakePaymentCreator, *fakeEventProducer) {
	t.Helper()

	db, mock := newMockDB(t)
	t.Cleanup(func() { db.Close() })

	log := newTestLogger()
	cat := newTestCatalog()
	ledger := NewLedgerService(db, log)
	payments := &fakePaymentCreator{}
	producer := &fakeEventProducer{}

	service := NewPurchaseService(
		db, log, cat, ledger,
		NewEligibilityService(cat, ledger, log),
		NewPricingService(cat),
		payments, nil, producer,
	)

	return service, mock, payments, producer
}

func expectReferralCheck(mock sqlmock.Sqlmock, allowed bool) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(testAccountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(allowed))
}

func TestPurchaseService_CreateIntent(t *testing.T) {
	service, mock, payments, _ := newTestPurchaseService(t)

	expectReferralCheck(mock, true)
	expectSnapshotCounts(mock, nil, nil)

	secret, err := service.CreateIntent(context.Background(), testAccountID,
		map[string]float64{"adult_ticket": 2}, []string{"summer"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if secret != "pi_test_secret" {
		t.Errorf("unexpected client secret %q", secret)
	}

	// 2 x 5500 минус 10 процентов.
	if payments.lastAmount != 9900 {
		t.Errorf("expected amount 9900, got %d", payments.lastAmount)
	}
	if payments.lastMetadata["accountId"] != testAccountID.String() {
		t.Errorf("account id missing from metadata: %v", payments.lastMetadata)
	}
	if payments.lastMetadata["adult_ticket"] != "2" {
		t.Errorf("counts missing from metadata: %v", payments.lastMetadata)
	}
	if payments.lastMetadata["discount_ids"] != "disc-percent-10" {
		t.Errorf("discount ids missing from metadata: %v", payments.lastMetadata)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_CreateIntentNotAuthorized(t *testing.T) {
	service, mock, _, _ := newTestPurchaseService(t)

	expectReferralCheck(mock, false)

	_, err := service.CreateIntent(context.Background(), testAccountID,
		map[string]float64{"adult_ticket": 1}, nil)

	rejection, ok := err.(*Rejection)
	if !ok {
		t.Fatalf("expected *Rejection, got %v", err)
	}
	if rejection.Kind != RejectionNotAuthorized {
		t.Errorf("expected %s, got %s", RejectionNotAuthorized, rejection.Kind)
	}
}

func TestPurchaseService_CreateIntentEmptyAfterSanitize(t *testing.T) {
	service, mock, _, _ := newTestPurchaseService(t)

	expectReferralCheck(mock, true)

	_, err := service.CreateIntent(context.Background(), testAccountID,
		map[string]float64{"adult_ticket": -3, "bus_pass": 0.9}, nil)
	if err == nil {
		t.Fatal("expected validation error for empty order")
	}
}

func TestPurchaseService_CreateIntentProcessorError(t *testing.T) {
	service, mock, payments, _ := newTestPurchaseService(t)
	payments.err = errors.New("stripe is down")

	expectReferralCheck(mock, true)
	expectSnapshotCounts(mock, nil, nil)

	_, err := service.CreateIntent(context.Background(), testAccountID,
		map[string]float64{"adult_ticket": 1}, nil)
	if err == nil || !strings.Contains(err.Error(), "payment processor error") {
		t.Fatalf("expected wrapped processor error, got %v", err)
	}
}

func TestPurchaseService_RecordFulfillment(t *testing.T) {
	service, mock, _, producer := newTestPurchaseService(t)

	metadata := encodeIntentMetadata(testAccountID, nil, map[string]int{"adult_ticket": 2})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM purchase WHERE stripe_payment_intent").
		WithArgs("pi_123").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs("adult_ticket").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM purchase WHERE purchase_type_id = \\$1$").
		WithArgs("adult_ticket").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM purchase WHERE purchase_type_id = \\$1 AND owned_by_account_id").
		WithArgs("adult_ticket", testAccountID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO purchase").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO purchase").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := service.RecordFulfillment(context.Background(), "pi_123", metadata); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if len(producer.recorded) != 1 || producer.recorded[0] != "pi_123" {
		t.Errorf("expected purchase recorded event, got %v", producer.recorded)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_RecordFulfillmentIdempotent(t *testing.T) {
	service, mock, _, producer := newTestPurchaseService(t)

	metadata := encodeIntentMetadata(testAccountID, nil, map[string]int{"adult_ticket": 1})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM purchase WHERE stripe_payment_intent").
		WithArgs("pi_dup").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	if err := service.RecordFulfillment(context.Background(), "pi_dup", metadata); err != nil {
		t.Fatalf("expected duplicate to be acknowledged, got %v", err)
	}

	if len(producer.recorded) != 0 {
		t.Errorf("duplicate must not publish events, got %v", producer.recorded)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_RecordFulfillmentCapOvershoot(t *testing.T) {
	service, mock, _, producer := newTestPurchaseService(t)

	metadata := encodeIntentMetadata(testAccountID, nil, map[string]int{"adult_ticket": 2})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM purchase WHERE stripe_payment_intent").
		WithArgs("pi_over").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs("adult_ticket").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Продано 99 из 100, пришло ещё 2: фиксация срывается целиком.
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM purchase WHERE purchase_type_id = \\$1$").
		WithArgs("adult_ticket").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(99))
	mock.ExpectRollback()

	err := service.RecordFulfillment(context.Background(), "pi_over", metadata)
	if err == nil {
		t.Fatal("expected error for cap overshoot")
	}

	if len(producer.failed) != 1 || producer.failed[0] != "pi_over:adult_ticket" {
		t.Errorf("expected fulfillment failure event, got %v", producer.failed)
	}
	if len(producer.recorded) != 0 {
		t.Errorf("aborted fulfillment must not publish recorded event, got %v", producer.recorded)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_RecordFulfillmentEmptyMetadata(t *testing.T) {
	service, mock, _, producer := newTestPurchaseService(t)

	if err := service.RecordFulfillment(context.Background(), "pi_empty", map[string]string{
		metadataKeyAccountID: testAccountID.String(),
	}); err != nil {
		t.Fatalf("expected empty metadata to be acknowledged, got %v", err)
	}

	if len(producer.recorded) != 0 {
		t.Errorf("empty fulfillment must not publish events, got %v", producer.recorded)
	}

	_ = mock
}

func TestPurchaseService_RecordFulfillmentMalformedMetadata(t *testing.T) {
	service, _, _, _ := newTestPurchaseService(t)

	err := service.RecordFulfillment(context.Background(), "pi_bad", map[string]string{
		"adult_ticket": "banana",
	})
	if err == nil {
		t.Fatal("expected error for malformed metadata")
	}
}

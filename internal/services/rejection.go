package services

import "fmt"

// RejectionKind — машиночитаемая причина отказа в покупке. Клиент различает
// причины по этому полю, HTTP-статус для всех отказов одинаковый (401).
type RejectionKind string

const (
	RejectionNotAuthorized       RejectionKind = "not_authorized_to_purchase"
	RejectionSalesClosed         RejectionKind = "sales_closed"
	RejectionGlobalCapExceeded   RejectionKind = "global_cap_exceeded"
	RejectionAccountCapExceeded  RejectionKind = "account_cap_exceeded"
	RejectionInvalidPurchaseType RejectionKind = "invalid_purchase_type"
)

// Rejection — типизированный отказ проверки допустимости покупки.
type Rejection struct {
	Kind           RejectionKind
	PurchaseTypeID string
}

func (r *Rejection) Error() string {
	if r.PurchaseTypeID != "" {
		return fmt.Sprintf("purchase rejected (%s): %s", r.Kind, r.PurchaseTypeID)
	}
	return fmt.Sprintf("purchase rejected (%s)", r.Kind)
}

func newRejection(kind RejectionKind, purchaseTypeID string) *Rejection {
	return &Rejection{Kind: kind, PurchaseTypeID: purchaseTypeID}
}

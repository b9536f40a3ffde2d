package services

import (
	"strings"
	"testing"

	"festival-system/internal/config"
	"festival-system/internal/models"
)

func TestNewMailgunMailer_DisabledReturnsNil(t *testing.T) {
	mailer := NewMailgunMailer(&config.MailConfig{Enabled: false}, newTestLogger())
	if mailer != nil {
		t.Fatal("expected nil mailer when mail is disabled")
	}
}

func TestFormatReceiptBody(t *testing.T) {
	lines := []models.PurchaseLine{
		{Description: "Adult Ticket", Quantity: 2, DiscountedPriceCents: 9900},
		{Description: "Bus Pass", Quantity: 1, DiscountedPriceCents: 9000},
	}
	discounts := []*models.Discount{
		{DiscountCode: "SUMMER"},
	}

	body := formatReceiptBody(lines, 18900, discounts)

	for _, want := range []string{"Adult Ticket x2: $99.00", "Bus Pass x1: $90.00", "SUMMER", "Total: $189.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("receipt body missing %q:\n%s", want, body)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents    int64
		expected string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{5500, "$55.00"},
		{123456, "$1234.56"},
		{-250, "-$2.50"},
	}

	for _, tc := range cases {
		if got := formatCents(tc.cents); got != tc.expected {
			t.Errorf("formatCents(%d) = %q, want %q", tc.cents, got, tc.expected)
		}
	}
}

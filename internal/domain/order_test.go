package domain

import (
	"errors"
	"testing"
	"time"
)

func validOrder() Order {
	now := time.Now().UTC()
	return Order{
		UserID:        7,
		SubtotalMinor: 500,
		ShippingMinor: 100,
		TaxMinor:      50,
		TotalMinor:    650,
		Status:        OrderStatusPending,
		Customer:      CustomerDetails{Name: "Ivan", Email: "ivan@example.com", Address: "Lenina 1"},
		Payment:       PaymentDetails{Method: "card"},
		Items: []OrderItem{
			{ProductID: 1, ProductName: "mug", Qty: 5, PriceMinor: 100, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr error
	}{
		{name: "valid", mutate: func(o *Order) {}, wantErr: nil},
		{name: "missing user", mutate: func(o *Order) { o.UserID = 0 }, wantErr: ErrUserRequired},
		{name: "empty cart", mutate: func(o *Order) { o.Items = nil }, wantErr: ErrItemsRequired},
		{name: "missing customer", mutate: func(o *Order) { o.Customer = CustomerDetails{} }, wantErr: ErrCustomerDetailsRequired},
		{name: "missing payment method", mutate: func(o *Order) { o.Payment.Method = "" }, wantErr: ErrPaymentMethodRequired},
		{name: "negative shipping", mutate: func(o *Order) { o.ShippingMinor = -1 }, wantErr: ErrAmountNegative},
		{name: "zero qty", mutate: func(o *Order) { o.Items[0].Qty = 0 }, wantErr: ErrItemQtyInvalid},
		{name: "negative price", mutate: func(o *Order) { o.Items[0].PriceMinor = -5 }, wantErr: ErrItemPriceInvalid},
		{name: "totals mismatch", mutate: func(o *Order) { o.TotalMinor = 651 }, wantErr: ErrTotalsMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order := validOrder()
			tc.mutate(&order)
			errs := order.ValidateInvariants()

			if tc.wantErr == nil {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}

			found := false
			for _, err := range errs {
				if errors.Is(err, tc.wantErr) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v among %v", tc.wantErr, errs)
			}
		})
	}
}

func TestOrderStatusValid(t *testing.T) {
	valid := []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q must be valid", s)
		}
	}
	if OrderStatus("refunded").Valid() {
		t.Error("unknown status must be invalid")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusDelivered, true},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusCancelled, true},
	}

	for _, tc := range tests {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusDelivered.Terminal() || !OrderStatusCancelled.Terminal() {
		t.Fatal("delivered and cancelled must be terminal")
	}
	if OrderStatusShipped.Terminal() {
		t.Fatal("shipped must not be terminal")
	}
}

func TestFormatOrderNumber(t *testing.T) {
	tests := []struct {
		year int
		id   int64
		want string
	}{
		{2026, 1, "ORD-2026-000001"},
		{2026, 123, "ORD-2026-000123"},
		{2025, 999999, "ORD-2025-999999"},
		{2026, 1234567, "ORD-2026-1234567"},
	}
	for _, tc := range tests {
		if got := FormatOrderNumber(tc.year, tc.id); got != tc.want {
			t.Errorf("FormatOrderNumber(%d, %d) = %q, want %q", tc.year, tc.id, got, tc.want)
		}
	}
}

func TestParseOrderRef(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    OrderRef
		wantErr error
	}{
		{name: "numeric id", raw: "42", want: OrderRef{ID: 42}},
		{name: "order number", raw: "ORD-2026-000042", want: OrderRef{Number: "ORD-2026-000042"}},
		{name: "padded spaces", raw: "  17 ", want: OrderRef{ID: 17}},
		{name: "empty", raw: "   ", wantErr: ErrOrderRefRequired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := ParseOrderRef(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref != tc.want {
				t.Fatalf("got %+v, want %+v", ref, tc.want)
			}
		})
	}
}

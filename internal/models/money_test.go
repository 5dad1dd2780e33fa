package models

import "testing"

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.004, 1.00},
		{1.005, 1.01},  // Половина округляется от нуля
		{2.675, 2.68},  // Классическая ловушка float64
		{-1.005, -1.01},
		{19999.999, 20000.00},
		{0.1 + 0.2, 0.3},
	}

	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, ожидали %v", tc.in, got, tc.want)
		}
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(3, 19999.99); got != 59999.97 {
		t.Errorf("LineTotal(3, 19999.99) = %v, ожидали 59999.97", got)
	}
	if got := LineTotal(1, 0.005); got != 0.01 {
		t.Errorf("LineTotal(1, 0.005) = %v, ожидали 0.01", got)
	}
}

func TestGrandTotal(t *testing.T) {
	// subtotal - discount + tax, каждая стадия округляется
	if got := GrandTotal(100000, 5000, 9500); got != 104500.00 {
		t.Errorf("GrandTotal = %v, ожидали 104500.00", got)
	}
	if got := GrandTotal(99.995, 0, 0); got != 100.00 {
		t.Errorf("GrandTotal(99.995) = %v, ожидали 100.00", got)
	}
}

func TestDeriveInvoiceStatus(t *testing.T) {
	cases := []struct {
		name       string
		grandTotal float64
		allocated  float64
		want       InvoiceStatus
	}{
		{"без оплат", 1000, 0, InvoiceStatusIssued},
		{"частичная оплата", 1000, 400, InvoiceStatusPaidPartial},
		{"полная оплата", 1000, 1000, InvoiceStatusPaidFull},
		{"копеечный остаток в пользу клиента", 1000, 999.996, InvoiceStatusPaidFull},
		{"нулевой счёт", 0, 0, InvoiceStatusPaidFull},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveInvoiceStatus(tc.grandTotal, tc.allocated); got != tc.want {
				t.Errorf("DeriveInvoiceStatus(%v, %v) = %s, ожидали %s", tc.grandTotal, tc.allocated, got, tc.want)
			}
		})
	}
}

func TestInvoiceDueAmount(t *testing.T) {
	inv := Invoice{
		GrandTotal: 250000,
		Allocations: []PaymentAllocation{
			{AmountApplied: 100000},
			{AmountApplied: 50000.50},
		},
	}

	if got := inv.AllocatedAmount(); got != 150000.50 {
		t.Errorf("AllocatedAmount = %v, ожидали 150000.50", got)
	}
	if got := inv.DueAmount(); got != 99999.50 {
		t.Errorf("DueAmount = %v, ожидали 99999.50", got)
	}
}

func TestQuotationRecalculateTotals(t *testing.T) {
	q := Quotation{
		Discount: 1000,
		Tax:      500,
		Items: []QuotationItem{
			{Qty: 2, UnitPrice: 10000, LineTotal: LineTotal(2, 10000)},
			{Qty: 1, UnitPrice: 5000.55, LineTotal: LineTotal(1, 5000.55)},
		},
	}
	q.RecalculateTotals()

	if q.Subtotal != 25000.55 {
		t.Errorf("Subtotal = %v, ожидали 25000.55", q.Subtotal)
	}
	if q.GrandTotal != 24500.55 {
		t.Errorf("GrandTotal = %v, ожидали 24500.55", q.GrandTotal)
	}
}

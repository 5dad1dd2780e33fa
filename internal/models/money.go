package models

import (
	"github.com/shopspring/decimal"
)

// Round2 округляет денежную сумму до 2 знаков (половина — от нуля).
// Округление выполняется на каждом шаге расчёта: строка, промежуточный итог, итог.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// LineTotal возвращает округлённую стоимость позиции qty × unitPrice
func LineTotal(qty int, unitPrice float64) float64 {
	return Round2(decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(unitPrice)).InexactFloat64())
}

// GrandTotal возвращает округлённый итог: subtotal − discount + tax
func GrandTotal(subtotal, discount, tax float64) float64 {
	s := decimal.NewFromFloat(Round2(subtotal))
	d := decimal.NewFromFloat(Round2(discount))
	t := decimal.NewFromFloat(Round2(tax))
	return Round2(s.Sub(d).Add(t).InexactFloat64())
}

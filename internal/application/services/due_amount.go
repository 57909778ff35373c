package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePaidAmount parses a possibly absent paid amount, reading anything
// unparseable as zero
func ParsePaidAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	paid, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return paid
}

// DueAmount returns max(0, tests + medicines - paid). Over-payment reports
// zero rather than a credit.
func DueAmount(testsTotal, medicinesTotal decimal.Decimal, paidAmount string) decimal.Decimal {
	due := testsTotal.Add(medicinesTotal).Sub(ParsePaidAmount(paidAmount))
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

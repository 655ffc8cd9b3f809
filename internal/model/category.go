package model

import (
	"fmt"
	"strings"
)

// CategoryLabel identifies one issue bucket. The set is closed.
type CategoryLabel string

// Category labels, in enumeration order.
const (
	LabelLockedAccount   CategoryLabel = "locked_account"
	LabelVerification    CategoryLabel = "verification"
	LabelWithdrawal      CategoryLabel = "withdrawal"
	LabelCustomerService CategoryLabel = "customer_service"
	LabelFraud           CategoryLabel = "fraud"
	LabelFees            CategoryLabel = "fees"
	LabelOther           CategoryLabel = "other"
)

// CategoryLabels returns every valid label in enumeration order.
func CategoryLabels() []CategoryLabel {
	return []CategoryLabel{
		LabelLockedAccount,
		LabelVerification,
		LabelWithdrawal,
		LabelCustomerService,
		LabelFraud,
		LabelFees,
		LabelOther,
	}
}

// Valid reports whether the label belongs to the closed set.
func (l CategoryLabel) Valid() bool {
	for _, known := range CategoryLabels() {
		if l == known {
			return true
		}
	}
	return false
}

// ParseCategoryLabel normalizes and validates a label.
func ParseCategoryLabel(s string) (CategoryLabel, error) {
	l := CategoryLabel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown category label %q", s)
	}
	return l, nil
}

// TrendDirection describes how a count moved between two windows.
type TrendDirection string

// Trend directions.
const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// Trend compares a recent window count with the window before it.
// Percent is the absolute rounded change; Direction carries the sign.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Percent   int            `json:"percent"`
	Recent    int            `json:"recent"`
	Previous  int            `json:"previous"`
}

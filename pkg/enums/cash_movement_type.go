package enums

import "fmt"

// CashMovementType classifies an entry in the drawer's append-only ledger.
type CashMovementType string

const (
	CashMovementOpeningFloat CashMovementType = "opening_float"
	CashMovementSale         CashMovementType = "sale"
	CashMovementRefund       CashMovementType = "refund"
	CashMovementPayout       CashMovementType = "payout"
	CashMovementDrop         CashMovementType = "drop"
	CashMovementAdjustment   CashMovementType = "adjustment"
	CashMovementClosingCount CashMovementType = "closing_count"
)

var validCashMovementTypes = []CashMovementType{
	CashMovementOpeningFloat,
	CashMovementSale,
	CashMovementRefund,
	CashMovementPayout,
	CashMovementDrop,
	CashMovementAdjustment,
	CashMovementClosingCount,
}

// String implements fmt.Stringer.
func (t CashMovementType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known CashMovementType.
func (t CashMovementType) IsValid() bool {
	for _, candidate := range validCashMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsSystemOnly reports whether the movement type is reserved for the
// session lifecycle and may not be recorded manually.
func (t CashMovementType) IsSystemOnly() bool {
	return t == CashMovementOpeningFloat || t == CashMovementClosingCount
}

// ParseCashMovementType converts raw input into a CashMovementType.
func ParseCashMovementType(value string) (CashMovementType, error) {
	for _, candidate := range validCashMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cash movement type %q", value)
}

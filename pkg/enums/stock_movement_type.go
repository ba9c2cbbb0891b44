package enums

import "fmt"

// StockMovementType classifies entries in the stock movement ledger.
type StockMovementType string

const (
	StockMovementReserve StockMovementType = "reserve"
	StockMovementRestore StockMovementType = "restore"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementReserve,
	StockMovementRestore,
}

// IsValid reports whether the value matches the canonical stock movement type enum.
func (t StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts the raw string to StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}

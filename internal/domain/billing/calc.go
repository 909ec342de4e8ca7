package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeLineTotal multiplies a unit price by a quantity using exact decimal
// arithmetic. The per-line total is never rounded; rounding happens once at
// the bill level when tax is applied. Pure and side-effect free.
func ComputeLineTotal(unitPrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if unitPrice.IsNegative() {
		return decimal.Zero, &InvalidLineItemError{
			Reason: fmt.Sprintf("unit price %s is negative", unitPrice),
		}
	}
	if quantity <= 0 {
		return decimal.Zero, &InvalidLineItemError{
			Reason: fmt.Sprintf("quantity %d is not positive", quantity),
		}
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))), nil
}

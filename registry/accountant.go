package registry

import (
	"fmt"

	"github.com/opennft/nfr/util"
)

// Accountant converts storage byte deltas into required payments and
// refunds. It must run after the mutation it accounts for, against the
// actual resulting footprint, never an estimate.
type Accountant struct {
	costPerByte uint64
}

func NewAccountant(costPerByte uint64) *Accountant {
	return &Accountant{costPerByte: costPerByte}
}

func (a *Accountant) CostPerByte() uint64 {
	return a.costPerByte
}

// Measure reconciles the byte delta of one call against the attached
// deposit and returns the amount to refund to the caller. Growth must be
// covered by the deposit; released bytes are credited back on top of the
// unused deposit. Any arithmetic overflow aborts the call.
func (a *Accountant) Measure(preBytes, postBytes, deposit uint64) (uint64, error) {
	switch {
	case postBytes > preBytes:
		required, ok := util.SafeMul(postBytes-preBytes, a.costPerByte)
		if !ok {
			return 0, ErrAmountOverflow
		}
		if deposit < required {
			return 0, fmt.Errorf("%w: required %d, attached %d", ErrInsufficientStorageDeposit, required, deposit)
		}
		return deposit - required, nil
	case postBytes < preBytes:
		released, ok := util.SafeMul(preBytes-postBytes, a.costPerByte)
		if !ok {
			return 0, ErrAmountOverflow
		}
		refund, ok := util.SafeAdd(deposit, released)
		if !ok {
			return 0, ErrAmountOverflow
		}
		return refund, nil
	default:
		return deposit, nil
	}
}

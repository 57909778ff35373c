package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
)

// minStepperQuantity is the floor for the dispense stepper; removing a line
// entirely is not done here.
const minStepperQuantity = 1

// QuantityAdjustments tracks working dispense quantities for the medicines of
// one order, and the reasons required when a quantity is reduced below its
// prescribed baseline.
type QuantityAdjustments struct {
	baselines  map[string]int
	quantities map[string]int
	reasons    map[string]string
}

// NewQuantityAdjustments seeds working quantities from each medicine's baseline
func NewQuantityAdjustments(order *entities.Order) *QuantityAdjustments {
	q := &QuantityAdjustments{
		baselines:  make(map[string]int),
		quantities: make(map[string]int),
		reasons:    make(map[string]string),
	}
	for _, m := range order.Medicines() {
		q.baselines[m.ID] = m.BaselineQuantity()
		q.quantities[m.ID] = m.BaselineQuantity()
	}
	return q
}

// Baseline returns the prescribed quantity for a medicine
func (q *QuantityAdjustments) Baseline(itemID string) (int, bool) {
	b, ok := q.baselines[itemID]
	return b, ok
}

// Quantity returns the working quantity for a medicine
func (q *QuantityAdjustments) Quantity(itemID string) (int, bool) {
	v, ok := q.quantities[itemID]
	return v, ok
}

// Reason returns the reduction reason entered for a medicine
func (q *QuantityAdjustments) Reason(itemID string) string {
	return q.reasons[itemID]
}

// Reduced reports whether the working quantity is strictly below baseline
func (q *QuantityAdjustments) Reduced(itemID string) bool {
	current, ok := q.quantities[itemID]
	return ok && current < q.baselines[itemID]
}

// Increment raises the working quantity by one
func (q *QuantityAdjustments) Increment(itemID string) (int, error) {
	current, ok := q.quantities[itemID]
	if !ok {
		return 0, unknownMedicine(itemID)
	}
	return q.Set(itemID, current+1)
}

// Decrement lowers the working quantity by one, stopping at the stepper floor
func (q *QuantityAdjustments) Decrement(itemID string) (int, error) {
	current, ok := q.quantities[itemID]
	if !ok {
		return 0, unknownMedicine(itemID)
	}
	if current <= minStepperQuantity {
		return current, nil
	}
	return q.Set(itemID, current-1)
}

// Set overrides the working quantity. Restoring a medicine to its baseline
// or above clears any reason entered for the earlier reduction.
func (q *QuantityAdjustments) Set(itemID string, quantity int) (int, error) {
	if _, ok := q.quantities[itemID]; !ok {
		return 0, unknownMedicine(itemID)
	}
	if quantity < minStepperQuantity {
		return 0, apperrors.NewValidationError(fmt.Sprintf("Quantity must be at least %d", minStepperQuantity))
	}

	q.quantities[itemID] = quantity
	if !q.Reduced(itemID) {
		delete(q.reasons, itemID)
	}
	return quantity, nil
}

// SetReason records why a medicine is dispensed below its baseline.
// A blank reason clears it.
func (q *QuantityAdjustments) SetReason(itemID, reason string) error {
	if _, ok := q.quantities[itemID]; !ok {
		return unknownMedicine(itemID)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		delete(q.reasons, itemID)
		return nil
	}
	if !q.Reduced(itemID) {
		return apperrors.NewValidationError("A reason is only needed when the quantity is reduced")
	}
	q.reasons[itemID] = reason
	return nil
}

// Adjusted reports whether any working quantity differs from its baseline
func (q *QuantityAdjustments) Adjusted() bool {
	for id, current := range q.quantities {
		if current != q.baselines[id] {
			return true
		}
	}
	return false
}

// MissingReasons lists reduced medicines that have no reason yet, sorted by id
func (q *QuantityAdjustments) MissingReasons() []string {
	var missing []string
	for id := range q.quantities {
		if q.Reduced(id) && q.reasons[id] == "" {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

// Validate fails while a reduced medicine has no reason
func (q *QuantityAdjustments) Validate() error {
	missing := q.MissingReasons()
	if len(missing) == 0 {
		return nil
	}
	return apperrors.NewValidationError(fmt.Sprintf(
		"Please enter a reason for the reduced quantity of %s", strings.Join(missing, ", "),
	))
}

// ApplyTo adds the quantity and reason maps to an approval payload. Nothing
// is added unless some quantity differs from its baseline.
func (q *QuantityAdjustments) ApplyTo(payload *entities.ApprovalPayload) {
	if q == nil || !q.Adjusted() {
		return
	}
	payload.Quantities = make(map[string]int, len(q.quantities))
	for id, v := range q.quantities {
		payload.Quantities[id] = v
	}
	reasons := make(map[string]string)
	for id, r := range q.reasons {
		if q.Reduced(id) {
			reasons[id] = r
		}
	}
	if len(reasons) > 0 {
		payload.Reasons = reasons
	}
}

// Clone copies the adjustments so a background call sees a stable snapshot
func (q *QuantityAdjustments) Clone() *QuantityAdjustments {
	c := &QuantityAdjustments{
		baselines:  make(map[string]int, len(q.baselines)),
		quantities: make(map[string]int, len(q.quantities)),
		reasons:    make(map[string]string, len(q.reasons)),
	}
	for k, v := range q.baselines {
		c.baselines[k] = v
	}
	for k, v := range q.quantities {
		c.quantities[k] = v
	}
	for k, v := range q.reasons {
		c.reasons[k] = v
	}
	return c
}

func unknownMedicine(itemID string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("medicine %s not found on order", itemID))
}

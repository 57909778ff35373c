package entities

import "time"

// PatientCategory is the numeric patient-type marker sent by the hospital backend
type PatientCategory int

const (
	PatientCategoryOPD          PatientCategory = 1
	PatientCategoryIPD          PatientCategory = 2
	PatientCategoryEmergency    PatientCategory = 3
	PatientCategoryReceptionOPD PatientCategory = 21
)

// IsInpatient reports IPD and Emergency patients
func (c PatientCategory) IsInpatient() bool {
	return c == PatientCategoryIPD || c == PatientCategoryEmergency
}

// String returns the label shown on order cards
func (c PatientCategory) String() string {
	switch c {
	case PatientCategoryOPD:
		return "OPD"
	case PatientCategoryIPD:
		return "IPD"
	case PatientCategoryEmergency:
		return "Emergency"
	case PatientCategoryReceptionOPD:
		return "OPD (reception)"
	default:
		return "Unknown"
	}
}

// UnknownDepartment is shown when no department name can be resolved
const UnknownDepartment = "Unknown Department"

// Order is the unit of approval and rejection
type Order struct {
	ID         string          `json:"id"`
	PatientID  string          `json:"patient_id"`
	TimelineID string          `json:"timeline_id,omitempty"`
	Category   PatientCategory `json:"category"`

	DepartmentID string `json:"department_id,omitempty"`

	// DepartmentName is the display name embedded by the backend, if any
	DepartmentName string `json:"department_name,omitempty"`

	Items []LineItem `json:"-"`

	// PaidAmount is kept as received; it is parsed leniently when reconciling
	PaidAmount   string           `json:"paid_amount,omitempty"`
	RejectReason string           `json:"reject_reason,omitempty"`
	NurseID      string           `json:"nurse_id,omitempty"`
	Status       ApprovalDecision `json:"status"`
	AddedOn      time.Time        `json:"added_on"`
}

// Tests returns the order's test line items
func (o *Order) Tests() []TestItem {
	var out []TestItem
	for _, item := range o.Items {
		if t, ok := item.(TestItem); ok {
			out = append(out, t)
		}
	}
	return out
}

// Medicines returns the order's medicine line items
func (o *Order) Medicines() []MedicineItem {
	var out []MedicineItem
	for _, item := range o.Items {
		if m, ok := item.(MedicineItem); ok {
			out = append(out, m)
		}
	}
	return out
}

// HasTests reports whether the order carries at least one test
func (o *Order) HasTests() bool {
	return len(o.Tests()) > 0
}

// HasMedicines reports whether the order carries at least one medicine
func (o *Order) HasMedicines() bool {
	return len(o.Medicines()) > 0
}

// RequiresNurse reports whether approval needs an assigned nurse:
// inpatient pharmacy orders are handed to a ward nurse on dispense.
func (o *Order) RequiresNurse() bool {
	return o.Category.IsInpatient() && o.HasMedicines()
}

// Rejectable reports whether the rejection path is offered for this order.
// Only reception OPD orders can be rejected; inpatient orders are approve-only.
func (o *Order) Rejectable() bool {
	return o.Category == PatientCategoryReceptionOPD
}

// DecisionOrPending returns the server-reported status, treating blank as pending
func (o *Order) DecisionOrPending() ApprovalDecision {
	if o.Status == "" {
		return DecisionPending
	}
	return o.Status
}

// Clone returns a copy safe to hand to a background call.
// Line items are values, so copying the slice is enough.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	return &c
}

// OrderQuery scopes a pending-order fetch. A zero PageSize asks for the full list.
type OrderQuery struct {
	HospitalID string
	Role       string
	Page       int
	PageSize   int
}

// OrderPage is one fetch of pending orders. CurrentPage and TotalPages are
// only meaningful when the backend paged the result.
type OrderPage struct {
	Orders      []*Order
	CurrentPage int
	TotalPages  int
}

package entities

import (
	"math"
	"time"
)

// LineItemKind tags the LineItem variants
type LineItemKind string

const (
	LineItemKindTest     LineItemKind = "test"
	LineItemKindMedicine LineItemKind = "medicine"
)

// Default GST rates applied when the backend omits one
const (
	DefaultTestTaxRate     = 0.0
	DefaultMedicineTaxRate = 18.0
)

// LineItem is one billable unit of an order: a TestItem or a MedicineItem.
// The interface is sealed; callers switch on the concrete type.
type LineItem interface {
	ItemID() string
	DisplayName() string
	Kind() LineItemKind

	// UnitPrice is the sanitized unit price: missing, NaN, infinite or negative values read as 0
	UnitPrice() float64

	// TaxRate is the sanitized GST percentage, falling back to the variant default when absent
	TaxRate() float64

	// BaselineQuantity is the prescribed quantity used for billing
	BaselineQuantity() int

	isLineItem()
}

// TestItem is a lab test on an order
type TestItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LoincCode string    `json:"loinc_code,omitempty"`
	HSNCode   string    `json:"hsn_code,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	GST       *float64  `json:"gst,omitempty"`
	AddedOn   time.Time `json:"added_on"`
}

func (t TestItem) ItemID() string      { return t.ID }
func (t TestItem) DisplayName() string { return t.Name }
func (t TestItem) Kind() LineItemKind  { return LineItemKindTest }
func (t TestItem) UnitPrice() float64  { return sanitize(t.Price) }

func (t TestItem) TaxRate() float64 {
	if t.GST == nil {
		return DefaultTestTaxRate
	}
	return sanitize(t.GST)
}

// BaselineQuantity is always 1 for tests
func (t TestItem) BaselineQuantity() int { return 1 }

func (TestItem) isLineItem() {}

// MedicineItem is a dispensed medicine on a pharmacy order
type MedicineItem struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	GST       *float64 `json:"gst,omitempty"`
	Frequency *float64 `json:"frequency,omitempty"`
	DaysCount *float64 `json:"days_count,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"`

	// ReducedQuantityReason is the reason recorded server-side for an earlier reduction
	ReducedQuantityReason string    `json:"reduced_quantity_reason,omitempty"`
	AddedOn               time.Time `json:"added_on"`
}

func (m MedicineItem) ItemID() string      { return m.ID }
func (m MedicineItem) DisplayName() string { return m.Name }
func (m MedicineItem) Kind() LineItemKind  { return LineItemKindMedicine }
func (m MedicineItem) UnitPrice() float64  { return sanitize(m.Price) }

func (m MedicineItem) TaxRate() float64 {
	if m.GST == nil {
		return DefaultMedicineTaxRate
	}
	return sanitize(m.GST)
}

// BaselineQuantity is frequency x days when both are present and positive,
// else the explicit quantity (0 marks a cancelled line), else 1.
func (m MedicineItem) BaselineQuantity() int {
	if valid(m.Frequency) && valid(m.DaysCount) {
		if q := int(math.Round(*m.Frequency * *m.DaysCount)); q > 0 {
			return q
		}
	}
	if valid(m.Quantity) && *m.Quantity >= 0 {
		return int(math.Round(*m.Quantity))
	}
	return 1
}

func (MedicineItem) isLineItem() {}

func valid(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func sanitize(v *float64) float64 {
	if !valid(v) || *v < 0 {
		return 0
	}
	return *v
}

package hospitalapi

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
)

// optionalNumber accepts a JSON number, a numeric string or null.
// Anything else decodes as absent rather than failing the whole order.
type optionalNumber struct {
	value *float64
}

func (n *optionalNumber) UnmarshalJSON(b []byte) error {
	n.value = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	var f float64
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	} else if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	n.value = &f
	return nil
}

// looseString accepts a JSON string or number and keeps its text
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		*s = looseString(strings.TrimSpace(str))
		return nil
	}
	*s = looseString(b)
	return nil
}

// looseTime accepts RFC 3339 and a few common timestamp layouts. Anything
// unreadable decodes as the zero time rather than failing the whole order.
type looseTime time.Time

var looseTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

func (t *looseTime) UnmarshalJSON(b []byte) error {
	*t = looseTime{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range looseTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = looseTime(parsed)
			return nil
		}
	}
	return nil
}

type testDTO struct {
	ID        looseString    `json:"id"`
	MongoID   looseString    `json:"_id"`
	Name      string         `json:"name"`
	LoincCode string         `json:"loincCode"`
	HSNCode   string         `json:"hsnCode"`
	Price     optionalNumber `json:"price"`
	GST       optionalNumber `json:"gst"`
	AddedOn   looseTime      `json:"addedOn"`
}

type medicineDTO struct {
	ID                    looseString    `json:"id"`
	MongoID               looseString    `json:"_id"`
	Name                  string         `json:"name"`
	Category              string         `json:"category"`
	Price                 optionalNumber `json:"price"`
	GST                   optionalNumber `json:"gst"`
	Frequency             optionalNumber `json:"frequency"`
	DaysCount             optionalNumber `json:"daysCount"`
	Quantity              optionalNumber `json:"quantity"`
	ReducedQuantityReason string         `json:"reducedQuantityReason"`
	AddedOn               looseTime      `json:"addedOn"`
}

type orderDTO struct {
	ID              looseString    `json:"id"`
	MongoID         looseString    `json:"_id"`
	PatientID       looseString    `json:"patientId"`
	TimelineID      looseString    `json:"timelineId"`
	PatientCategory optionalNumber `json:"patientCategory"`
	DepartmentID    looseString    `json:"departmentId"`
	DepartmentName  string         `json:"departmentName"`
	PaidAmount      looseString    `json:"paidAmount"`
	NurseID         looseString    `json:"nurseId"`
	Status          string         `json:"status"`
	RejectReason    string         `json:"rejectReason"`
	AddedOn         looseTime      `json:"addedOn"`
	Tests           []testDTO      `json:"tests"`
	Medicines       []medicineDTO  `json:"medicines"`
}

type ordersEnvelope struct {
	Data        []orderDTO `json:"data"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
}

type departmentDTO struct {
	ID   looseString `json:"id"`
	Name string      `json:"name"`
}

type departmentEnvelope struct {
	Name string         `json:"name"`
	Data *departmentDTO `json:"data"`
}

type nurseDTO struct {
	ID           looseString `json:"id"`
	MongoID      looseString `json:"_id"`
	Name         string      `json:"name"`
	DepartmentID looseString `json:"departmentId"`
}

type nursesEnvelope struct {
	Data []nurseDTO `json:"data"`
}

type mutationResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func firstNonEmpty(values ...looseString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

func timeOrZero(t looseTime) time.Time {
	return time.Time(t)
}

func (d orderDTO) toEntity() *entities.Order {
	order := &entities.Order{
		ID:             firstNonEmpty(d.ID, d.MongoID),
		PatientID:      string(d.PatientID),
		TimelineID:     string(d.TimelineID),
		DepartmentID:   string(d.DepartmentID),
		DepartmentName: strings.TrimSpace(d.DepartmentName),
		PaidAmount:     string(d.PaidAmount),
		NurseID:        string(d.NurseID),
		Status:         decision(d.Status),
		RejectReason:   d.RejectReason,
		AddedOn:        timeOrZero(d.AddedOn),
	}
	if v := d.PatientCategory.value; v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
		order.Category = entities.PatientCategory(int(*v))
	}

	for _, t := range d.Tests {
		order.Items = append(order.Items, entities.TestItem{
			ID:        firstNonEmpty(t.ID, t.MongoID),
			Name:      t.Name,
			LoincCode: t.LoincCode,
			HSNCode:   t.HSNCode,
			Price:     t.Price.value,
			GST:       t.GST.value,
			AddedOn:   timeOrZero(t.AddedOn),
		})
	}
	for _, m := range d.Medicines {
		order.Items = append(order.Items, entities.MedicineItem{
			ID:                    firstNonEmpty(m.ID, m.MongoID),
			Name:                  m.Name,
			Category:              m.Category,
			Price:                 m.Price.value,
			GST:                   m.GST.value,
			Frequency:             m.Frequency.value,
			DaysCount:             m.DaysCount.value,
			Quantity:              m.Quantity.value,
			ReducedQuantityReason: m.ReducedQuantityReason,
			AddedOn:               timeOrZero(m.AddedOn),
		})
	}
	return order
}

// decision maps backend status strings; unknown values read as pending
func decision(status string) entities.ApprovalDecision {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "accepted", "approved":
		return entities.DecisionAccepted
	case "rejected":
		return entities.DecisionRejected
	default:
		return entities.DecisionPending
	}
}

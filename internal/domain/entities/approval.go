package entities

import "time"

// ApprovalDecision is the per-order decision state
type ApprovalDecision string

const (
	DecisionPending  ApprovalDecision = "pending"
	DecisionAccepted ApprovalDecision = "accepted"
	DecisionRejected ApprovalDecision = "rejected"
)

// IsTerminal reports whether no further transition is issued locally
func (d ApprovalDecision) IsTerminal() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// ApprovalPayload is the body of the approve mutation.
// Quantities and Reasons are only present when some medicine quantity
// differs from its baseline.
type ApprovalPayload struct {
	OrderID         string            `json:"orderId"`
	PatientID       string            `json:"patientId"`
	TimelineID      string            `json:"timelineId,omitempty"`
	UpdateTests     bool              `json:"updateTests"`
	UpdateMedicines bool              `json:"updateMedicines"`
	NurseID         string            `json:"nurseId,omitempty"`
	Quantities      map[string]int    `json:"quantities,omitempty"`
	Reasons         map[string]string `json:"reasons,omitempty"`
}

// RejectionPayload is the body of the reject mutation
type RejectionPayload struct {
	OrderID    string `json:"orderId"`
	PatientID  string `json:"patientId"`
	TimelineID string `json:"timelineId,omitempty"`
	Reason     string `json:"rejectReason"`
}

// MutationResult is the backend's answer to approve or reject
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OrderDecisionEvent is published after a decision is accepted by the backend
type OrderDecisionEvent struct {
	ID        string           `json:"id"`
	OrderID   string           `json:"order_id"`
	PatientID string           `json:"patient_id"`
	Decision  ApprovalDecision `json:"decision"`
	Reason    string           `json:"reason,omitempty"`
	At        time.Time        `json:"at"`
}

package providers

import (
	"context"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
)

// OrderBackend is the hospital REST backend that owns pending orders.
// Approve and reject return a MutationResult for any answer the backend
// gave, and an error only when no answer was received.
type OrderBackend interface {
	// FetchPendingOrders lists orders waiting for a decision. An empty list is not an error.
	FetchPendingOrders(ctx context.Context, query entities.OrderQuery) (*entities.OrderPage, error)

	// ApproveOrder submits an approval
	ApproveOrder(ctx context.Context, payload *entities.ApprovalPayload) (*entities.MutationResult, error)

	// RejectOrder submits a rejection with its reason
	RejectOrder(ctx context.Context, payload *entities.RejectionPayload) (*entities.MutationResult, error)
}

// DepartmentDirectory translates department identifiers into display names
type DepartmentDirectory interface {
	DepartmentName(ctx context.Context, departmentID string) (string, error)
}

// NurseDirectory lists the nurses of a hospital
type NurseDirectory interface {
	ListNurses(ctx context.Context, hospitalID string) ([]entities.Nurse, error)
}

// Notifier surfaces the outcome of an action to staff
type Notifier interface {
	Success(ctx context.Context, message string)
	Failure(ctx context.Context, message string)
}

package services

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
)

// Messages surfaced to staff
const (
	MsgApproveSuccess   = "Order approved successfully"
	MsgRejectSuccess    = "Order rejected successfully"
	MsgApproveFailed    = "Failed to approve order"
	MsgRejectFailed     = "Failed to reject order"
	MsgNurseRequired    = "Please assign a nurse before approving this order"
	MsgReasonRequired   = "Please enter a reason for rejection"
	MsgRejectNotOffered = "Inpatient orders cannot be rejected, only approved"
	MsgDecisionInFlight = "This order is already being processed"
	MsgAlreadyDecided   = "This order has already been decided"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

// DecisionResult describes a successful approve or reject call
type DecisionResult struct {
	Decision entities.ApprovalDecision
	// Applied is false when the order already carried the decision and the
	// backend was not called
	Applied bool
	// Message is the server's message, or the default for the action
	Message string
}

// ApprovalWorkflow runs approve and reject for pending orders. Decisions are
// kept in a short-lived overlay consulted before the server-reported status;
// Reset discards it when the order collection is reloaded.
type ApprovalWorkflow struct {
	backend  providers.OrderBackend
	notifier providers.Notifier
	metrics  *observability.Metrics

	mu        sync.Mutex
	decisions map[string]entities.ApprovalDecision
	inFlight  map[string]struct{}
}

// NewApprovalWorkflow creates a new approval workflow
func NewApprovalWorkflow(backend providers.OrderBackend, notifier providers.Notifier) *ApprovalWorkflow {
	return &ApprovalWorkflow{
		backend:   backend,
		notifier:  notifier,
		decisions: make(map[string]entities.ApprovalDecision),
		inFlight:  make(map[string]struct{}),
	}
}

// SetMetrics attaches decision metrics
func (w *ApprovalWorkflow) SetMetrics(metrics *observability.Metrics) {
	w.metrics = metrics
}

// Decision returns the local decision for an order, falling through to its server status
func (w *ApprovalWorkflow) Decision(order *entities.Order) entities.ApprovalDecision {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d, ok := w.decisions[order.ID]; ok {
		return d
	}
	return order.DecisionOrPending()
}

// Reset discards the local decision overlay
func (w *ApprovalWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.decisions = make(map[string]entities.ApprovalDecision)
}

// CheckApproval runs the local approve preconditions without calling the backend
func (w *ApprovalWorkflow) CheckApproval(order *entities.Order, adjustments *QuantityAdjustments) error {
	if order.RequiresNurse() && strings.TrimSpace(order.NurseID) == "" {
		return apperrors.NewValidationError(MsgNurseRequired)
	}
	if adjustments != nil {
		if err := adjustments.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BuildApprovalPayload shapes the approve mutation for the order's contents
func BuildApprovalPayload(order *entities.Order, adjustments *QuantityAdjustments) *entities.ApprovalPayload {
	payload := &entities.ApprovalPayload{
		OrderID:         order.ID,
		PatientID:       order.PatientID,
		TimelineID:      order.TimelineID,
		UpdateTests:     order.HasTests(),
		UpdateMedicines: order.HasMedicines(),
		NurseID:         strings.TrimSpace(order.NurseID),
	}
	adjustments.ApplyTo(payload)
	return payload
}

// Approve validates and submits an approval. Validation failures never reach
// the backend. A failed call leaves the order pending and re-actionable.
func (w *ApprovalWorkflow) Approve(ctx context.Context, order *entities.Order, adjustments *QuantityAdjustments) (DecisionResult, error) {
	ctx, span := observability.StartSpan(ctx, "orders.approve")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.category", order.Category.String()),
	)

	if err := w.CheckApproval(order, adjustments); err != nil {
		observability.RecordDecision(ctx, w.metrics, actionApprove, "validation")
		return DecisionResult{}, err
	}

	done, err := w.begin(order, entities.DecisionAccepted)
	if err != nil {
		return DecisionResult{}, err
	}
	if done {
		return DecisionResult{Decision: entities.DecisionAccepted, Message: MsgAlreadyDecided}, nil
	}
	defer w.end(order.ID)

	payload := BuildApprovalPayload(order, adjustments)
	result, err := w.backend.ApproveOrder(ctx, payload)
	message, err := w.settle(ctx, order, actionApprove, result, err, entities.DecisionAccepted)
	if err != nil {
		observability.RecordError(span, err)
		return DecisionResult{}, err
	}
	return DecisionResult{Decision: entities.DecisionAccepted, Applied: true, Message: message}, nil
}

// Reject validates and submits a rejection with its reason
func (w *ApprovalWorkflow) Reject(ctx context.Context, order *entities.Order, reason string) (DecisionResult, error) {
	ctx, span := observability.StartSpan(ctx, "orders.reject")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.category", order.Category.String()),
	)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		observability.RecordDecision(ctx, w.metrics, actionReject, "validation")
		return DecisionResult{}, apperrors.NewValidationError(MsgReasonRequired)
	}
	if !order.Rejectable() {
		observability.RecordDecision(ctx, w.metrics, actionReject, "validation")
		return DecisionResult{}, apperrors.NewValidationError(MsgRejectNotOffered)
	}

	done, err := w.begin(order, entities.DecisionRejected)
	if err != nil {
		return DecisionResult{}, err
	}
	if done {
		return DecisionResult{Decision: entities.DecisionRejected, Message: MsgAlreadyDecided}, nil
	}
	defer w.end(order.ID)

	result, err := w.backend.RejectOrder(ctx, &entities.RejectionPayload{
		OrderID:    order.ID,
		PatientID:  order.PatientID,
		TimelineID: order.TimelineID,
		Reason:     reason,
	})
	message, err := w.settle(ctx, order, actionReject, result, err, entities.DecisionRejected)
	if err != nil {
		observability.RecordError(span, err)
		return DecisionResult{}, err
	}
	return DecisionResult{Decision: entities.DecisionRejected, Applied: true, Message: message}, nil
}

// begin marks the order busy. done is true when the order already carries
// the target decision; the opposite decision is refused.
func (w *ApprovalWorkflow) begin(order *entities.Order, target entities.ApprovalDecision) (done bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current, ok := w.decisions[order.ID]
	if !ok {
		current = order.DecisionOrPending()
	}
	if current == target {
		return true, nil
	}
	if current.IsTerminal() {
		return false, apperrors.NewConflictError(MsgAlreadyDecided)
	}
	if _, busy := w.inFlight[order.ID]; busy {
		return false, apperrors.NewConflictError(MsgDecisionInFlight)
	}
	w.inFlight[order.ID] = struct{}{}
	return false, nil
}

func (w *ApprovalWorkflow) end(orderID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, orderID)
}

// settle turns the backend answer into local state and a notification. It
// returns the message shown to staff on success.
func (w *ApprovalWorkflow) settle(ctx context.Context, order *entities.Order, action string, result *entities.MutationResult, callErr error, decision entities.ApprovalDecision) (string, error) {
	logger := observability.LoggerFromContext(ctx)

	fallback, success := MsgApproveFailed, MsgApproveSuccess
	if action == actionReject {
		fallback, success = MsgRejectFailed, MsgRejectSuccess
	}

	var failure error
	switch {
	case callErr != nil:
		failure = apperrors.NewExternalError(fallback, callErr)
	case result == nil || !result.Success:
		message := fallback
		if result != nil && strings.TrimSpace(result.Message) != "" {
			message = strings.TrimSpace(result.Message)
		}
		failure = apperrors.NewExternalError(message, nil)
	}

	if failure != nil {
		observability.RecordDecision(ctx, w.metrics, action, "backend")
		logger.Error().Err(failure).Str("order_id", order.ID).Str("action", action).Msg("order decision failed")
		w.notify(ctx, false, apperrors.UserMessage(failure))
		return "", failure
	}

	w.mu.Lock()
	w.decisions[order.ID] = decision
	w.mu.Unlock()

	observability.RecordDecision(ctx, w.metrics, action, "success")
	logger.Info().Str("order_id", order.ID).Str("decision", string(decision)).Msg("order decided")
	message := success
	if m := strings.TrimSpace(result.Message); m != "" {
		message = m
	}
	w.notify(ctx, true, message)
	return message, nil
}

func (w *ApprovalWorkflow) notify(ctx context.Context, ok bool, message string) {
	if w.notifier == nil {
		return
	}
	if ok {
		w.notifier.Success(ctx, message)
		return
	}
	w.notifier.Failure(ctx, message)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/orderdesk/backend/internal/application/services"
	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
	"github.com/zatekoja/orderdesk/backend/pkg/pagination"
)

// OrderBoard is the subset of the order board the HTTP layer drives
type OrderBoard interface {
	Reload(ctx context.Context) error
	Page() services.PageView
	RequestPage(ctx context.Context, n int) (pagination.State, error)
	Order(orderID string) (services.OrderView, error)
	Expand(orderID string) error
	Collapse()
	SetAdjustedQuantity(orderID, itemID string, quantity int) (int, error)
	Increment(orderID, itemID string) (int, error)
	Decrement(orderID, itemID string) (int, error)
	SetReductionReason(orderID, itemID, reason string) error
	AssignNurse(orderID, nurseID string) error
	Nurses(ctx context.Context) []entities.Nurse
	Approve(ctx context.Context, orderID string) (services.DecisionResult, error)
	Reject(ctx context.Context, orderID, reason string) (services.DecisionResult, error)
}

// SessionHeader names the screen a request belongs to. Requests without it
// share the default board.
const SessionHeader = "X-Session-ID"

// BoardLookup returns the board for a session id
type BoardLookup func(ctx context.Context, sessionID string) (OrderBoard, error)

// OrderHandler handles pending-order HTTP requests
type OrderHandler struct {
	boards BoardLookup
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(boards BoardLookup) *OrderHandler {
	return &OrderHandler{boards: boards}
}

func (h *OrderHandler) board(w http.ResponseWriter, r *http.Request) (OrderBoard, bool) {
	board, err := h.boards(r.Context(), r.Header.Get(SessionHeader))
	if err != nil {
		respondWithAppError(w, r, err)
		return nil, false
	}
	return board, true
}

// Response shapes. Money is rendered with two decimals.

type testLineResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	TaxRate float64 `json:"tax_rate"`
	Amount  string  `json:"amount"`
}

type medicineLineResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	TaxRate  float64 `json:"tax_rate"`
	Baseline int     `json:"baseline_quantity"`
	Quantity int     `json:"quantity"`
	Reduced  bool    `json:"reduced"`
	Reason   string  `json:"reason,omitempty"`
	Amount   string  `json:"amount"`
}

type orderResponse struct {
	ID             string                    `json:"id"`
	PatientID      string                    `json:"patient_id"`
	TimelineID     string                    `json:"timeline_id,omitempty"`
	Category       int                       `json:"category"`
	CategoryLabel  string                    `json:"category_label"`
	DepartmentName string                    `json:"department_name"`
	NurseID        string                    `json:"nurse_id,omitempty"`
	Decision       entities.ApprovalDecision `json:"decision"`
	Expanded       bool                      `json:"expanded"`
	Rejectable     bool                      `json:"rejectable"`
	RequiresNurse  bool                      `json:"requires_nurse"`
	TestsTotal     string                    `json:"tests_total"`
	MedicinesTotal string                    `json:"medicines_total"`
	GrandTotal     string                    `json:"grand_total"`
	PaidAmount     string                    `json:"paid_amount"`
	DueAmount      string                    `json:"due_amount"`
	Tests          []testLineResponse        `json:"tests"`
	Medicines      []medicineLineResponse    `json:"medicines"`
	AddedOn        *time.Time                `json:"added_on,omitempty"`
}

type pageResponse struct {
	Orders   []orderResponse  `json:"orders"`
	Page     pagination.State `json:"page"`
	Expanded string           `json:"expanded,omitempty"`
}

type decisionResponse struct {
	OrderID  string                    `json:"order_id"`
	Decision entities.ApprovalDecision `json:"decision"`
	Message  string                    `json:"message"`
}

type quantityResponse struct {
	OrderID  string `json:"order_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

func toOrderResponse(v services.OrderView) orderResponse {
	resp := orderResponse{
		ID:             v.ID,
		PatientID:      v.PatientID,
		TimelineID:     v.TimelineID,
		Category:       int(v.Category),
		CategoryLabel:  v.Category.String(),
		DepartmentName: v.DepartmentName,
		NurseID:        v.NurseID,
		Decision:       v.Decision,
		Expanded:       v.Expanded,
		Rejectable:     v.Rejectable,
		RequiresNurse:  v.RequiresNurse,
		TestsTotal:     v.Totals.Tests.StringFixed(2),
		MedicinesTotal: v.Totals.Medicines.StringFixed(2),
		GrandTotal:     v.Totals.Grand.StringFixed(2),
		PaidAmount:     v.Paid.StringFixed(2),
		DueAmount:      v.Totals.Due.StringFixed(2),
		Tests:          make([]testLineResponse, 0, len(v.Tests)),
		Medicines:      make([]medicineLineResponse, 0, len(v.Medicines)),
	}
	if !v.AddedOn.IsZero() {
		addedOn := v.AddedOn
		resp.AddedOn = &addedOn
	}
	for _, t := range v.Tests {
		resp.Tests = append(resp.Tests, testLineResponse{
			ID: t.ID, Name: t.Name, TaxRate: t.TaxRate, Amount: t.Amount.StringFixed(2),
		})
	}
	for _, m := range v.Medicines {
		resp.Medicines = append(resp.Medicines, medicineLineResponse{
			ID: m.ID, Name: m.Name, TaxRate: m.TaxRate,
			Baseline: m.Baseline, Quantity: m.Quantity, Reduced: m.Reduced, Reason: m.Reason,
			Amount: m.Amount.StringFixed(2),
		})
	}
	return resp
}

func toPageResponse(v services.PageView) pageResponse {
	resp := pageResponse{
		Orders:   make([]orderResponse, 0, len(v.Orders)),
		Page:     v.Page,
		Expanded: v.Expanded,
	}
	for _, o := range v.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	return resp
}

// ListOrders handles GET /api/orders. An optional 1-based page parameter
// requests a page change first.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "page must be a number")
			return
		}
		if _, err := board.RequestPage(r.Context(), page-1); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, toPageResponse(board.Page()))
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	view, err := board.Order(r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toOrderResponse(view))
}

// ReloadOrders handles POST /api/orders/reload
func (h *OrderHandler) ReloadOrders(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	if err := board.Reload(r.Context()); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPageResponse(board.Page()))
}

// ExpandOrder handles POST /api/orders/{id}/expand
func (h *OrderHandler) ExpandOrder(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	if err := board.Expand(r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPageResponse(board.Page()))
}

// CollapseOrder handles POST /api/orders/collapse
func (h *OrderHandler) CollapseOrder(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	board.Collapse()
	respondWithJSON(w, http.StatusOK, toPageResponse(board.Page()))
}

// ApproveOrder handles POST /api/orders/{id}/approve
func (h *OrderHandler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	orderID := r.PathValue("id")
	result, err := board.Approve(r.Context(), orderID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, decisionResponse{OrderID: orderID, Decision: result.Decision, Message: result.Message})
}

// RejectOrder handles POST /api/orders/{id}/reject
func (h *OrderHandler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	orderID := r.PathValue("id")
	result, err := board.Reject(r.Context(), orderID, req.Reason)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, decisionResponse{OrderID: orderID, Decision: result.Decision, Message: result.Message})
}

// SetQuantity handles PUT /api/orders/{id}/items/{itemId}/quantity
func (h *OrderHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondWithError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	h.respondQuantity(w, r, func(orderID, itemID string) (int, error) {
		return board.SetAdjustedQuantity(orderID, itemID, *req.Quantity)
	})
}

// IncrementQuantity handles POST /api/orders/{id}/items/{itemId}/increment
func (h *OrderHandler) IncrementQuantity(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	h.respondQuantity(w, r, board.Increment)
}

// DecrementQuantity handles POST /api/orders/{id}/items/{itemId}/decrement
func (h *OrderHandler) DecrementQuantity(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	h.respondQuantity(w, r, board.Decrement)
}

func (h *OrderHandler) respondQuantity(w http.ResponseWriter, r *http.Request, fn func(orderID, itemID string) (int, error)) {
	orderID, itemID := r.PathValue("id"), r.PathValue("itemId")
	quantity, err := fn(orderID, itemID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, quantityResponse{OrderID: orderID, ItemID: itemID, Quantity: quantity})
}

// SetReductionReason handles PUT /api/orders/{id}/items/{itemId}/reason
func (h *OrderHandler) SetReductionReason(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := board.SetReductionReason(r.PathValue("id"), r.PathValue("itemId"), req.Reason); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignNurse handles PUT /api/orders/{id}/nurse
func (h *OrderHandler) AssignNurse(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	var req struct {
		NurseID string `json:"nurse_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := board.AssignNurse(r.PathValue("id"), req.NurseID); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNurses handles GET /api/nurses
func (h *OrderHandler) ListNurses(w http.ResponseWriter, r *http.Request) {
	board, ok := h.board(w, r)
	if !ok {
		return
	}
	nurses := board.Nurses(r.Context())
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"nurses": nurses,
		"count":  len(nurses),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps application errors onto status codes. Internal
// failures are logged and hidden behind a generic message.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	message := apperrors.UserMessage(err)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message = "internal server error"
	}
	respondWithError(w, status, message)
}

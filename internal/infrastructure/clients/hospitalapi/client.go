package hospitalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
)

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 4 << 20

// HTTPClient talks to the hospital REST backend. It implements
// OrderBackend, DepartmentDirectory and NurseDirectory.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var (
	_ providers.OrderBackend        = (*HTTPClient)(nil)
	_ providers.DepartmentDirectory = (*HTTPClient)(nil)
	_ providers.NurseDirectory      = (*HTTPClient)(nil)
)

// NewClient creates a client. token is sent as a bearer credential when set.
func NewClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPendingOrders lists pending orders. Pages are 1-based on the wire.
func (c *HTTPClient) FetchPendingOrders(ctx context.Context, query entities.OrderQuery) (*entities.OrderPage, error) {
	parsed, err := url.Parse(c.baseURL + "/orders/pending")
	if err != nil {
		return nil, err
	}
	q := parsed.Query()
	if query.HospitalID != "" {
		q.Set("hospitalId", query.HospitalID)
	}
	if query.Role != "" {
		q.Set("role", query.Role)
	}
	if query.PageSize > 0 {
		q.Set("page", strconv.Itoa(query.Page+1))
		q.Set("limit", strconv.Itoa(query.PageSize))
	}
	parsed.RawQuery = q.Encode()

	var raw json.RawMessage
	if err := c.getJSON(ctx, parsed.String(), &raw); err != nil {
		return nil, err
	}

	var envelope ordersEnvelope
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &envelope.Data); err != nil {
			return nil, apperrors.NewExternalError("Malformed order list", err)
		}
	default:
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, apperrors.NewExternalError("Malformed order list", err)
		}
	}

	page := &entities.OrderPage{
		Orders:     make([]*entities.Order, 0, len(envelope.Data)),
		TotalPages: envelope.TotalPages,
	}
	if envelope.CurrentPage > 0 {
		page.CurrentPage = envelope.CurrentPage - 1
	}
	for _, dto := range envelope.Data {
		order := dto.toEntity()
		if order.ID == "" {
			continue
		}
		page.Orders = append(page.Orders, order)
	}
	return page, nil
}

// DepartmentName resolves a department's display name
func (c *HTTPClient) DepartmentName(ctx context.Context, departmentID string) (string, error) {
	if strings.TrimSpace(departmentID) == "" {
		return "", apperrors.NewValidationError("department id is required")
	}
	endpoint := fmt.Sprintf("%s/departments/%s", c.baseURL, url.PathEscape(departmentID))

	var out departmentEnvelope
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return "", err
	}
	if out.Data != nil && strings.TrimSpace(out.Data.Name) != "" {
		return strings.TrimSpace(out.Data.Name), nil
	}
	return strings.TrimSpace(out.Name), nil
}

// ListNurses returns the nurse directory of a hospital
func (c *HTTPClient) ListNurses(ctx context.Context, hospitalID string) ([]entities.Nurse, error) {
	endpoint := fmt.Sprintf("%s/nurses?hospitalId=%s", c.baseURL, url.QueryEscape(hospitalID))

	var out nursesEnvelope
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	nurses := make([]entities.Nurse, 0, len(out.Data))
	for _, n := range out.Data {
		id := firstNonEmpty(n.ID, n.MongoID)
		if id == "" {
			continue
		}
		nurses = append(nurses, entities.Nurse{ID: id, Name: n.Name, DepartmentID: string(n.DepartmentID)})
	}
	return nurses, nil
}

// ApproveOrder posts an approval
func (c *HTTPClient) ApproveOrder(ctx context.Context, payload *entities.ApprovalPayload) (*entities.MutationResult, error) {
	endpoint := fmt.Sprintf("%s/orders/%s/approve", c.baseURL, url.PathEscape(payload.OrderID))
	return c.mutate(ctx, endpoint, payload)
}

// RejectOrder posts a rejection
func (c *HTTPClient) RejectOrder(ctx context.Context, payload *entities.RejectionPayload) (*entities.MutationResult, error) {
	endpoint := fmt.Sprintf("%s/orders/%s/reject", c.baseURL, url.PathEscape(payload.OrderID))
	return c.mutate(ctx, endpoint, payload)
}

// mutate returns the backend's verdict for any response it received.
// Only transport failures are errors.
func (c *HTTPClient) mutate(ctx context.Context, endpoint string, payload interface{}) (*entities.MutationResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	status, data, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	ok := status >= 200 && status < 300
	result := &entities.MutationResult{Success: ok}

	var resp mutationResponse
	if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &resp) == nil {
		if resp.Success != nil {
			result.Success = ok && *resp.Success
		}
		result.Message = strings.TrimSpace(resp.Message)
		if result.Message == "" {
			result.Message = strings.TrimSpace(resp.Error)
		}
	}
	return result, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	status, data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewExternalError("Hospital service unavailable", err)
	}
	if err := statusError(status); err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewExternalError("Malformed response from hospital service", err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body io.Reader) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return apperrors.NewNotFoundError("resource not found on hospital service")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.NewUnauthorizedError("hospital service rejected credentials")
	default:
		return apperrors.NewExternalError(fmt.Sprintf("hospital service returned status %d", status), nil)
	}
}

package hospitalapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/clients/hospitalapi"
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
)

const pendingOrdersBody = `{
  "data": [
    {
      "_id": "ord-1",
      "patientId": "pat-1",
      "timelineId": "tl-1",
      "patientCategory": "2",
      "departmentId": "dep-cardio",
      "paidAmount": 100,
      "status": "pending",
      "unexpected": {"nested": true},
      "tests": [{"id": "t1", "name": "CBC", "price": 200, "gst": "18"}],
      "medicines": [
        {"id": "m1", "name": "Paracetamol", "price": "50", "gst": 12, "frequency": 2, "daysCount": "3"},
        {"id": "m2", "name": "Saline", "price": "abc", "gst": null, "quantity": "NaN"}
      ]
    },
    {"patientId": "orphan"}
  ],
  "currentPage": 2,
  "totalPages": 4
}`

func newServer(t *testing.T, handler http.HandlerFunc) *hospitalapi.HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return hospitalapi.NewClient(server.URL+"/", "secret-token", time.Second)
}

func TestFetchPendingOrders(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/pending", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "hosp-1", r.URL.Query().Get("hospitalId"))
		assert.Equal(t, "pharmacy", r.URL.Query().Get("role"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, pendingOrdersBody)
	})

	page, err := client.FetchPendingOrders(context.Background(), entities.OrderQuery{
		HospitalID: "hosp-1", Role: "pharmacy", Page: 1, PageSize: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 4, page.TotalPages)
	require.Len(t, page.Orders, 1, "orders without an id are dropped")

	order := page.Orders[0]
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, entities.PatientCategoryIPD, order.Category)
	assert.Equal(t, "100", order.PaidAmount)
	assert.Equal(t, entities.DecisionPending, order.Status)
	require.Len(t, order.Tests(), 1)
	require.Len(t, order.Medicines(), 2)

	assert.Equal(t, 18.0, order.Tests()[0].TaxRate())
	para := order.Medicines()[0]
	assert.Equal(t, 50.0, para.UnitPrice())
	assert.Equal(t, 6, para.BaselineQuantity())

	saline := order.Medicines()[1]
	assert.Equal(t, 0.0, saline.UnitPrice())
	assert.Equal(t, entities.DefaultMedicineTaxRate, saline.TaxRate())
	assert.Equal(t, 1, saline.BaselineQuantity())
}

func TestFetchPendingOrders_BareArrayAndEmpty(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.Query().Get("page"))
			_, _ = io.WriteString(w, `[{"id":"a","patientCategory":21}]`)
		})
		page, err := client.FetchPendingOrders(context.Background(), entities.OrderQuery{HospitalID: "h"})
		require.NoError(t, err)
		require.Len(t, page.Orders, 1)
		assert.True(t, page.Orders[0].Rejectable())
	})

	t.Run("empty list is not an error", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":[]}`)
		})
		page, err := client.FetchPendingOrders(context.Background(), entities.OrderQuery{})
		require.NoError(t, err)
		assert.Empty(t, page.Orders)
	})
}

func TestFetchPendingOrders_LenientTimestamps(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[
			{"id":"a","addedOn":"2024-01-05 10:00:00","tests":[{"id":"t1","addedOn":"not a date"}]},
			{"id":"b","addedOn":"2024-01-06T08:30:00.250Z","medicines":[{"id":"m1","addedOn":1704441600}]},
			{"id":"c","addedOn":"yesterday"}
		]}`)
	})

	page, err := client.FetchPendingOrders(context.Background(), entities.OrderQuery{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 3)

	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), page.Orders[0].AddedOn)
	assert.True(t, page.Orders[0].Tests()[0].AddedOn.IsZero())

	assert.Equal(t, time.Date(2024, 1, 6, 8, 30, 0, 250_000_000, time.UTC), page.Orders[1].AddedOn.UTC())
	assert.True(t, page.Orders[1].Medicines()[0].AddedOn.IsZero())

	assert.True(t, page.Orders[2].AddedOn.IsZero())
}

func TestFetchPendingOrders_StatusErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   apperrors.ErrorType
	}{
		{http.StatusUnauthorized, apperrors.ErrorTypeUnauthorized},
		{http.StatusNotFound, apperrors.ErrorTypeNotFound},
		{http.StatusBadGateway, apperrors.ErrorTypeExternal},
	}
	for _, tc := range cases {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.FetchPendingOrders(context.Background(), entities.OrderQuery{})
		assert.True(t, apperrors.IsType(err, tc.kind), "status %d", tc.status)
	}
}

func TestDepartmentName(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/departments/dep-1":
			_, _ = io.WriteString(w, `{"data":{"id":"dep-1","name":" Cardiology "}}`)
		case "/departments/dep-2":
			_, _ = io.WriteString(w, `{"name":"Oncology"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	name, err := client.DepartmentName(ctx, "dep-1")
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", name)

	name, err = client.DepartmentName(ctx, "dep-2")
	require.NoError(t, err)
	assert.Equal(t, "Oncology", name)

	_, err = client.DepartmentName(ctx, "dep-3")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestListNurses(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hosp-1", r.URL.Query().Get("hospitalId"))
		_, _ = io.WriteString(w, `{"data":[{"_id":"n1","name":"A. Okafor","departmentId":7},{"name":"no id"}]}`)
	})

	nurses, err := client.ListNurses(context.Background(), "hosp-1")
	require.NoError(t, err)
	assert.Equal(t, []entities.Nurse{{ID: "n1", Name: "A. Okafor", DepartmentID: "7"}}, nurses)
}

func TestApproveOrder(t *testing.T) {
	var got map[string]any
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/ord-1/approve", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true,"message":"Approved"}`)
	})

	result, err := client.ApproveOrder(context.Background(), &entities.ApprovalPayload{
		OrderID:         "ord-1",
		PatientID:       "pat-1",
		UpdateTests:     true,
		UpdateMedicines: false,
	})
	require.NoError(t, err)
	assert.Equal(t, &entities.MutationResult{Success: true, Message: "Approved"}, result)

	assert.Equal(t, "ord-1", got["orderId"])
	assert.Equal(t, true, got["updateTests"])
	assert.Equal(t, false, got["updateMedicines"])
	assert.NotContains(t, got, "quantities")
	assert.NotContains(t, got, "reasons")
}

func TestRejectOrder_FailureShapes(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		success bool
		message string
	}{
		{"explicit failure", http.StatusOK, `{"success":false,"message":"Order already dispensed"}`, false, "Order already dispensed"},
		{"error status with message", http.StatusConflict, `{"error":"Locked"}`, false, "Locked"},
		{"error status without body", http.StatusInternalServerError, ``, false, ""},
		{"ok without body", http.StatusOK, ``, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/orders/r1/reject", r.URL.Path)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			result, err := client.RejectOrder(context.Background(), &entities.RejectionPayload{OrderID: "r1", Reason: "stock issue"})
			require.NoError(t, err)
			assert.Equal(t, tc.success, result.Success)
			assert.Equal(t, tc.message, result.Message)
		})
	}
}

func TestMutation_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := hospitalapi.NewClient(server.URL, "", time.Second)
	server.Close()

	result, err := client.ApproveOrder(context.Background(), &entities.ApprovalPayload{OrderID: "o"})
	assert.Error(t, err)
	assert.Nil(t, result)
}

package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
)

// Mocks

type MockOrderBackend struct {
	mock.Mock
}

func (m *MockOrderBackend) FetchPendingOrders(ctx context.Context, query entities.OrderQuery) (*entities.OrderPage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.OrderPage), args.Error(1)
}

func (m *MockOrderBackend) ApproveOrder(ctx context.Context, payload *entities.ApprovalPayload) (*entities.MutationResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MutationResult), args.Error(1)
}

func (m *MockOrderBackend) RejectOrder(ctx context.Context, payload *entities.RejectionPayload) (*entities.MutationResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MutationResult), args.Error(1)
}

type MockDepartmentDirectory struct {
	mock.Mock
}

func (m *MockDepartmentDirectory) DepartmentName(ctx context.Context, departmentID string) (string, error) {
	args := m.Called(ctx, departmentID)
	return args.String(0), args.Error(1)
}

type MockNurseDirectory struct {
	mock.Mock
}

func (m *MockNurseDirectory) ListNurses(ctx context.Context, hospitalID string) ([]entities.Nurse, error) {
	args := m.Called(ctx, hospitalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Nurse), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Success(ctx context.Context, message string) {
	m.Called(ctx, message)
}

func (m *MockNotifier) Failure(ctx context.Context, message string) {
	m.Called(ctx, message)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.OrderDecisionEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Fixtures

func num(v float64) *float64 { return &v }

// ipdOrder is an inpatient order with one test (200 @ 18%) and one medicine
// (50 @ 12%, twice a day for three days), 100 already paid.
func ipdOrder() *entities.Order {
	return &entities.Order{
		ID:           "ord-1",
		PatientID:    "pat-1",
		TimelineID:   "tl-1",
		Category:     entities.PatientCategoryIPD,
		DepartmentID: "dep-cardio",
		PaidAmount:   "100",
		Items: []entities.LineItem{
			entities.TestItem{ID: "test-cbc", Name: "Complete blood count", Price: num(200), GST: num(18)},
			entities.MedicineItem{ID: "med-para", Name: "Paracetamol 500mg", Price: num(50), GST: num(12), Frequency: num(2), DaysCount: num(3)},
		},
	}
}

// receptionOrder is a reception OPD order carrying tests only
func receptionOrder(id string) *entities.Order {
	return &entities.Order{
		ID:         id,
		PatientID:  "pat-" + id,
		TimelineID: "tl-" + id,
		Category:   entities.PatientCategoryReceptionOPD,
		Items: []entities.LineItem{
			entities.TestItem{ID: "test-" + id, Name: "Lipid profile", Price: num(500)},
		},
	}
}

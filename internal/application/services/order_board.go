package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
	"github.com/zatekoja/orderdesk/backend/pkg/pagination"
	"github.com/zatekoja/orderdesk/backend/pkg/retry"
)

// BoardOptions configures an OrderBoard
type BoardOptions struct {
	HospitalID string
	Role       string
	PageSize   int
	PagingMode pagination.Mode

	// DepartmentConcurrency bounds concurrent department name lookups
	DepartmentConcurrency int
}

// TestLineView is a test as shown on an expanded order
type TestLineView struct {
	ID      string
	Name    string
	TaxRate float64
	Amount  decimal.Decimal
}

// MedicineLineView is a medicine as shown on an expanded order, with its
// working quantity and reduction state
type MedicineLineView struct {
	ID       string
	Name     string
	TaxRate  float64
	Baseline int
	Quantity int
	Reduced  bool
	Reason   string
	Amount   decimal.Decimal
}

// OrderView is an order annotated with computed totals and decision state
type OrderView struct {
	ID             string
	PatientID      string
	TimelineID     string
	Category       entities.PatientCategory
	DepartmentName string
	NurseID        string
	Decision       entities.ApprovalDecision
	Expanded       bool
	Rejectable     bool
	RequiresNurse  bool
	Paid           decimal.Decimal
	Totals         OrderTotals
	Tests          []TestLineView
	Medicines      []MedicineLineView
	AddedOn        time.Time
}

// PageView is the current page of the board
type PageView struct {
	Orders   []OrderView
	Page     pagination.State
	Expanded string
}

// OrderBoard is the pending-order screen model. It owns the loaded order
// collection, its paginator, per-order quantity adjustments, the department
// name cache and the expanded order, and routes decisions through the
// approval workflow.
type OrderBoard struct {
	backend  providers.OrderBackend
	nurseDir providers.NurseDirectory
	workflow *ApprovalWorkflow
	resolver *DepartmentNameResolver
	names    *DepartmentNameCache
	eventBus providers.EventBus
	retryCfg retry.Config
	opts     BoardOptions
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup

	mu          sync.Mutex
	paginator   pagination.Paginator[*entities.Order]
	orders      map[string]*entities.Order
	adjustments map[string]*QuantityAdjustments
	nurses      []entities.Nurse
	expanded    string
	pendingPage int
	closed      bool
}

// NewOrderBoard creates a board. Call Reload to fetch the first orders.
func NewOrderBoard(
	backend providers.OrderBackend,
	departments providers.DepartmentDirectory,
	nurses providers.NurseDirectory,
	notifier providers.Notifier,
	opts BoardOptions,
) (*OrderBoard, error) {
	if opts.PagingMode == "" {
		opts.PagingMode = pagination.ModeInternal
	}

	b := &OrderBoard{
		backend:     backend,
		nurseDir:    nurses,
		workflow:    NewApprovalWorkflow(backend, notifier),
		resolver:    NewDepartmentNameResolver(departments, opts.DepartmentConcurrency),
		names:       NewDepartmentNameCache(),
		retryCfg:    readRetryConfig(),
		opts:        opts,
		orders:      make(map[string]*entities.Order),
		adjustments: make(map[string]*QuantityAdjustments),
		pendingPage: -1,
	}
	b.bgCtx, b.bgCancel = context.WithCancel(context.Background())

	paginator, err := pagination.New[*entities.Order](opts.PagingMode, nil, pagination.Options{
		PageSize:   opts.PageSize,
		TotalPages: 1,
		OnRequest:  func(page int) { b.pendingPage = page },
	})
	if err != nil {
		b.bgCancel()
		return nil, err
	}
	paginator.OnChange(func(int) { b.expanded = "" })
	b.paginator = paginator

	return b, nil
}

// readRetryConfig retries transport and backend failures but never client errors
func readRetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.ShouldRetry = func(err error) bool {
		return !apperrors.IsType(err, apperrors.ErrorTypeValidation) &&
			!apperrors.IsType(err, apperrors.ErrorTypeNotFound) &&
			!apperrors.IsType(err, apperrors.ErrorTypeUnauthorized)
	}
	return cfg
}

// SetEventBus sets the bus decision events are published on
func (b *OrderBoard) SetEventBus(eventBus providers.EventBus) {
	b.eventBus = eventBus
}

// SetMetrics attaches decision and department metrics
func (b *OrderBoard) SetMetrics(metrics *observability.Metrics) {
	b.workflow.SetMetrics(metrics)
	b.resolver.SetMetrics(metrics)
}

// SetRetryConfig overrides the retry policy for order and nurse reads
func (b *OrderBoard) SetRetryConfig(cfg retry.Config) {
	b.retryCfg = cfg
}

// Reload refetches pending orders for the current page and rebuilds all
// derived state: adjustments, the decision overlay and department names.
func (b *OrderBoard) Reload(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errBoardClosed()
	}
	page := b.paginator.State().PageIndex
	b.mu.Unlock()

	return b.load(ctx, page)
}

// RequestPage moves to page n, clamped to the available range. Any expanded
// order is collapsed. In external mode the page is fetched from the backend.
func (b *OrderBoard) RequestPage(ctx context.Context, n int) (pagination.State, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return pagination.State{}, errBoardClosed()
	}
	b.pendingPage = -1
	b.paginator.GoToPage(n)
	pending := b.pendingPage
	b.pendingPage = -1
	state := b.paginator.State()
	b.mu.Unlock()

	if pending < 0 {
		return state, nil
	}
	if err := b.load(ctx, pending); err != nil {
		return state, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paginator.State(), nil
}

func (b *OrderBoard) load(ctx context.Context, page int) error {
	logger := observability.LoggerFromContext(ctx)

	query := entities.OrderQuery{
		HospitalID: b.opts.HospitalID,
		Role:       b.opts.Role,
	}
	if b.opts.PagingMode == pagination.ModeExternal {
		query.Page = page
		query.PageSize = b.opts.PageSize
	}

	var result *entities.OrderPage
	err := retry.DoWithLog(ctx, b.retryCfg, "fetch pending orders", func() error {
		var err error
		result, err = b.backend.FetchPendingOrders(ctx, query)
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("retrying pending order fetch")
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to load pending orders")
		return apperrors.NewExternalError("Failed to load orders", err)
	}
	if result == nil {
		result = &entities.OrderPage{}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errBoardClosed()
	}
	b.install(result, page)
	orders := append([]*entities.Order(nil), result.Orders...)
	generation := b.names.Begin()
	b.bgWG.Add(1)
	b.mu.Unlock()

	b.workflow.Reset()
	logger.Info().Int("orders", len(orders)).Int("page", page).Msg("pending orders loaded")

	go func() {
		defer b.bgWG.Done()
		batch := b.resolver.ResolveBatch(b.bgCtx, orders)
		b.names.Apply(generation, batch)
	}()
	return nil
}

// install replaces the collection; caller holds b.mu. An externally paged
// result is taken to be the requested page.
func (b *OrderBoard) install(result *entities.OrderPage, page int) {
	orders := make(map[string]*entities.Order, len(result.Orders))
	adjustments := make(map[string]*QuantityAdjustments, len(result.Orders))
	for _, order := range result.Orders {
		orders[order.ID] = order
		adjustments[order.ID] = NewQuantityAdjustments(order)
	}
	b.orders = orders
	b.adjustments = adjustments

	b.paginator.Load(pagination.Page[*entities.Order]{
		Items:   result.Orders,
		Current: page,
		Total:   result.TotalPages,
	})

	if _, ok := b.onPage(b.expanded); !ok {
		b.expanded = ""
	}
}

// Page returns the current page with totals, department names and decisions
func (b *OrderBoard) Page() PageView {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.paginator.Items()
	view := PageView{
		Orders:   make([]OrderView, 0, len(items)),
		Page:     b.paginator.State(),
		Expanded: b.expanded,
	}
	for _, order := range items {
		view.Orders = append(view.Orders, b.viewOf(order))
	}
	return view
}

// Order returns a single order of the current page
func (b *OrderBoard) Order(orderID string) (OrderView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := b.lookup(orderID)
	if err != nil {
		return OrderView{}, err
	}
	return b.viewOf(order), nil
}

func (b *OrderBoard) viewOf(order *entities.Order) OrderView {
	adj := b.adjustments[order.ID]
	var quantity func(string) (int, bool)
	if adj != nil {
		quantity = adj.Quantity
	}

	view := OrderView{
		ID:             order.ID,
		PatientID:      order.PatientID,
		TimelineID:     order.TimelineID,
		Category:       order.Category,
		DepartmentName: b.names.NameFor(order),
		NurseID:        order.NurseID,
		Decision:       b.workflow.Decision(order),
		Expanded:       order.ID == b.expanded,
		Rejectable:     order.Rejectable(),
		RequiresNurse:  order.RequiresNurse(),
		Paid:           ParsePaidAmount(order.PaidAmount),
		Totals:         ComputeOrderTotals(order, quantity),
		AddedOn:        order.AddedOn,
	}

	for _, t := range order.Tests() {
		view.Tests = append(view.Tests, TestLineView{
			ID:      t.ID,
			Name:    t.Name,
			TaxRate: t.TaxRate(),
			Amount:  LineAmount(t).Round(2),
		})
	}
	for _, m := range order.Medicines() {
		line := MedicineLineView{
			ID:       m.ID,
			Name:     m.Name,
			TaxRate:  m.TaxRate(),
			Baseline: m.BaselineQuantity(),
			Quantity: m.BaselineQuantity(),
		}
		if adj != nil {
			if q, ok := adj.Quantity(m.ID); ok {
				line.Quantity = q
			}
			line.Reduced = adj.Reduced(m.ID)
			line.Reason = adj.Reason(m.ID)
		}
		line.Amount = LineAmountAt(m, line.Quantity).Round(2)
		view.Medicines = append(view.Medicines, line)
	}
	return view
}

// Expand shows the detail of one order of the current page
func (b *OrderBoard) Expand(orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.onPage(orderID); !ok {
		return orderNotFound(orderID)
	}
	b.expanded = orderID
	return nil
}

// Collapse hides the expanded order, if any
func (b *OrderBoard) Collapse() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expanded = ""
}

// SetAdjustedQuantity overrides the working quantity of a medicine
func (b *OrderBoard) SetAdjustedQuantity(orderID, itemID string, quantity int) (int, error) {
	return b.adjust(orderID, func(adj *QuantityAdjustments) (int, error) {
		return adj.Set(itemID, quantity)
	})
}

// Increment raises a medicine's working quantity by one
func (b *OrderBoard) Increment(orderID, itemID string) (int, error) {
	return b.adjust(orderID, func(adj *QuantityAdjustments) (int, error) {
		return adj.Increment(itemID)
	})
}

// Decrement lowers a medicine's working quantity by one, never below one
func (b *OrderBoard) Decrement(orderID, itemID string) (int, error) {
	return b.adjust(orderID, func(adj *QuantityAdjustments) (int, error) {
		return adj.Decrement(itemID)
	})
}

// SetReductionReason records why a medicine is dispensed below its baseline
func (b *OrderBoard) SetReductionReason(orderID, itemID, reason string) error {
	_, err := b.adjust(orderID, func(adj *QuantityAdjustments) (int, error) {
		return 0, adj.SetReason(itemID, reason)
	})
	return err
}

func (b *OrderBoard) adjust(orderID string, fn func(adj *QuantityAdjustments) (int, error)) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := b.lookup(orderID)
	if err != nil {
		return 0, err
	}
	if b.workflow.Decision(order).IsTerminal() {
		return 0, apperrors.NewConflictError(MsgAlreadyDecided)
	}
	return fn(b.adjustments[orderID])
}

// Nurses returns the hospital's nurse directory. A failed fetch yields an
// empty list, which disables nurse selection without failing the screen.
func (b *OrderBoard) Nurses(ctx context.Context) []entities.Nurse {
	logger := observability.LoggerFromContext(ctx)
	if b.nurseDir == nil {
		return []entities.Nurse{}
	}

	var nurses []entities.Nurse
	err := retry.DoWithLog(ctx, b.retryCfg, "fetch nurses", func() error {
		var err error
		nurses, err = b.nurseDir.ListNurses(ctx, b.opts.HospitalID)
		return err
	}, nil)
	if err != nil {
		logger.Warn().Err(err).Str("hospital_id", b.opts.HospitalID).Msg("nurse directory unavailable")
		nurses = nil
	}
	if nurses == nil {
		nurses = []entities.Nurse{}
	}

	b.mu.Lock()
	b.nurses = nurses
	b.mu.Unlock()
	return nurses
}

// AssignNurse sets the nurse who receives an inpatient order. A blank id
// clears the assignment. When the directory is known, unknown ids are refused.
func (b *OrderBoard) AssignNurse(orderID, nurseID string) error {
	nurseID = strings.TrimSpace(nurseID)

	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := b.lookup(orderID)
	if err != nil {
		return err
	}
	if b.workflow.Decision(order).IsTerminal() {
		return apperrors.NewConflictError(MsgAlreadyDecided)
	}
	if nurseID != "" && len(b.nurses) > 0 && !b.knownNurse(nurseID) {
		return apperrors.NewValidationError("Please select a nurse from the list")
	}
	order.NurseID = nurseID
	return nil
}

func (b *OrderBoard) knownNurse(id string) bool {
	for _, n := range b.nurses {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Decision returns the decision state of an order on the board
func (b *OrderBoard) Decision(orderID string) (entities.ApprovalDecision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := b.lookup(orderID)
	if err != nil {
		return "", err
	}
	return b.workflow.Decision(order), nil
}

// Approve approves an order with its current adjustments and nurse. Only a
// decision the backend accepted during this call is published and reloaded.
func (b *OrderBoard) Approve(ctx context.Context, orderID string) (DecisionResult, error) {
	b.mu.Lock()
	order, err := b.lookup(orderID)
	if err != nil {
		b.mu.Unlock()
		return DecisionResult{}, err
	}
	snapshot := order.Clone()
	adjustments := b.adjustments[orderID].Clone()
	b.mu.Unlock()

	result, err := b.workflow.Approve(ctx, snapshot, adjustments)
	if err != nil {
		return DecisionResult{Decision: b.workflow.Decision(snapshot)}, err
	}
	if result.Applied {
		b.afterDecision(ctx, snapshot, result.Decision, "")
	}
	return result, nil
}

// Reject rejects an order with a reason
func (b *OrderBoard) Reject(ctx context.Context, orderID, reason string) (DecisionResult, error) {
	b.mu.Lock()
	order, err := b.lookup(orderID)
	if err != nil {
		b.mu.Unlock()
		return DecisionResult{}, err
	}
	snapshot := order.Clone()
	b.mu.Unlock()

	result, err := b.workflow.Reject(ctx, snapshot, reason)
	if err != nil {
		return DecisionResult{Decision: b.workflow.Decision(snapshot)}, err
	}
	if result.Applied {
		b.afterDecision(ctx, snapshot, result.Decision, strings.TrimSpace(reason))
	}
	return result, nil
}

// afterDecision publishes the decision and refreshes the board. Neither step
// can undo a decision the backend accepted, so failures are only logged.
func (b *OrderBoard) afterDecision(ctx context.Context, order *entities.Order, decision entities.ApprovalDecision, reason string) {
	logger := observability.LoggerFromContext(ctx)

	if b.eventBus != nil {
		event := &entities.OrderDecisionEvent{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			PatientID: order.PatientID,
			Decision:  decision,
			Reason:    reason,
			At:        time.Now().UTC(),
		}
		if err := b.eventBus.Publish(ctx, providers.EventChannelOrderDecisions, event); err != nil {
			logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish order decision")
		}
	}

	b.mu.Lock()
	closed := b.closed
	if !closed {
		if current, ok := b.orders[order.ID]; ok {
			current.Status = decision
		}
	}
	b.mu.Unlock()
	if closed {
		return
	}

	if err := b.Reload(ctx); err != nil {
		logger.Warn().Err(err).Msg("reload after decision failed")
	}
}

// Close tears the board down. In-flight department batches are cancelled and
// their results discarded; decisions arriving later are ignored.
func (b *OrderBoard) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.bgCancel()
	b.names.Close()
	b.bgWG.Wait()
}

// lookup finds an order in the loaded collection; caller holds b.mu
func (b *OrderBoard) lookup(orderID string) (*entities.Order, error) {
	if b.closed {
		return nil, errBoardClosed()
	}
	order, ok := b.orders[orderID]
	if !ok {
		return nil, orderNotFound(orderID)
	}
	return order, nil
}

// onPage finds an order on the current page; caller holds b.mu
func (b *OrderBoard) onPage(orderID string) (*entities.Order, bool) {
	if orderID == "" {
		return nil, false
	}
	for _, order := range b.paginator.Items() {
		if order.ID == orderID {
			return order, true
		}
	}
	return nil, false
}

func orderNotFound(orderID string) error {
	return apperrors.NewNotFoundError("order " + orderID + " not found")
}

func errBoardClosed() error {
	return apperrors.NewConflictError("order board is closed")
}

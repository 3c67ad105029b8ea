package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/internal/realtime"
	"github.com/angelmondragon/floorops-backend/internal/tenant"
	dbpkg "github.com/angelmondragon/floorops-backend/pkg/db"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
	"github.com/angelmondragon/floorops-backend/pkg/outbox"
	"github.com/angelmondragon/floorops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/floorops-backend/pkg/pagination"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

const (
	defaultWriteTimeout    = 5 * time.Second
	defaultActiveListLimit = 200
	defaultFireLead        = 20 * time.Minute
	maxItemQuantity        = 999
	maxOrderLines          = 200
)

// Service is the order lifecycle entry point for handlers and jobs.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	ApplyTransition(ctx context.Context, input TransitionInput) (*models.Order, error)
	FireScheduled(ctx context.Context, orderID uuid.UUID, expectedVersion int64) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListActive(ctx context.Context, filter ActiveOrderFilter) ([]models.Order, error)
	ListOrders(ctx context.Context, params pagination.Params, filter OrderListFilter) (*OrderList, error)
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]DueOrder, error)
}

// ServiceParams wires the lifecycle service.
type ServiceParams struct {
	Repo                 Repository
	Tx                   TxRunner
	Outbox               OutboxEmitter
	Taxes                TaxRateResolver
	Catalog              MenuCatalog
	Broadcaster          Broadcaster
	Logger               *logger.Logger
	Metrics              *metrics.OrderMetrics
	WriteTimeout         time.Duration
	TotalsToleranceCents int64
	ActiveListLimit      int
	Now                  func() time.Time
}

type service struct {
	repo         Repository
	tx           TxRunner
	outbox       OutboxEmitter
	taxes        TaxRateResolver
	catalog      MenuCatalog
	broadcaster  Broadcaster
	logg         *logger.Logger
	metrics      *metrics.OrderMetrics
	writeTimeout time.Duration
	tolerance    int64
	activeLimit  int
	now          func() time.Time
}

// NewService constructs the lifecycle service. Broadcaster, Logger and Metrics
// are optional.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Taxes == nil {
		return nil, fmt.Errorf("tax rate resolver required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("menu catalog required")
	}
	svc := &service{
		repo:         p.Repo,
		tx:           p.Tx,
		outbox:       p.Outbox,
		taxes:        p.Taxes,
		catalog:      p.Catalog,
		broadcaster:  p.Broadcaster,
		logg:         p.Logger,
		metrics:      p.Metrics,
		writeTimeout: p.WriteTimeout,
		tolerance:    p.TotalsToleranceCents,
		activeLimit:  p.ActiveListLimit,
		now:          p.Now,
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.writeTimeout <= 0 {
		svc.writeTimeout = defaultWriteTimeout
	}
	if svc.tolerance <= 0 {
		svc.tolerance = DefaultTotalsToleranceCents
	}
	if svc.activeLimit <= 0 {
		svc.activeLimit = defaultActiveListLimit
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithTenantID(ctx, tc.TenantID.String())
	ctx = s.logg.WithActor(ctx, tc.ActorID, string(tc.Role))

	if err := validateCreateInput(&input, s.now()); err != nil {
		return nil, err
	}
	items, err := s.priceItems(ctx, tc.TenantID, input.Items)
	if err != nil {
		return nil, err
	}
	rate, err := s.taxes.RateFor(ctx, tc.TenantID)
	if err != nil {
		return nil, err
	}
	totals, err := ComputeTotals(items, rate, input.TipCents)
	if err != nil {
		return nil, err
	}

	mismatch := ReconcileTotal(totals, input.SuppliedTotalCents, s.tolerance)
	if mismatch != nil {
		s.metrics.IncTotalsMismatch(string(input.Type))
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"supplied_total_cents": mismatch.SuppliedCents,
			"computed_total_cents": mismatch.ComputedCents,
			"difference_cents":     mismatch.DifferenceCents,
			"order_type":           input.Type,
		})
		s.logg.Warn(logCtx, "supplied order total differs from computed total")
	}

	now := s.now()
	order := &models.Order{
		ID:                  uuid.New(),
		RestaurantID:        tc.TenantID,
		Type:                input.Type,
		Status:              InitialStatus(),
		Items:               items,
		SubtotalCents:       totals.SubtotalCents,
		TaxCents:            totals.TaxCents,
		TipCents:            totals.TipCents,
		TotalCents:          totals.TotalCents,
		TaxRate:             totals.TaxRate,
		Version:             1,
		IsScheduled:         input.IsScheduled,
		ScheduledPickupTime: input.ScheduledPickupTime,
		AutoFireTime:        input.AutoFireTime,
		Notes:               input.Notes,
		CustomerName:        input.CustomerName,
		TableNumber:         input.TableNumber,
		Metadata:            input.Metadata,
		CreatedBy:           tc.ActorID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	initial := &models.OrderStatusHistory{
		ID:         uuid.New(),
		ToStatus:   order.Status,
		Actor:      tc.ActorID,
		ActorRole:  tc.Role,
		Version:    1,
		OccurredAt: now,
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	started := time.Now()
	err = s.tx.WithTx(writeCtx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateOrder(writeCtx, order, initial); err != nil {
			return err
		}
		return s.outbox.Emit(writeCtx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      tc.TenantID,
			Actor:         actorRef(tc),
			OccurredAt:    now,
			Data:          createdPayload(order, mismatch),
		})
	})
	s.metrics.ObserveWrite("create", time.Since(started))
	if err != nil {
		return nil, s.writeError(ctx, "create", err)
	}

	s.metrics.IncCreated(string(order.Type))
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"total_cents":  order.TotalCents,
		"is_scheduled": order.IsScheduled,
	}), "order created")

	s.broadcast(ctx, realtime.Event{
		Type:       realtime.EventOrderCreated,
		TenantID:   order.RestaurantID,
		OrderID:    order.ID,
		Status:     order.Status,
		Version:    order.Version,
		OccurredAt: now,
	})
	return &CreateOrderResult{Order: order, Mismatch: mismatch}, nil
}

func (s *service) ApplyTransition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.applyTransition(ctx, input, false)
}

// FireScheduled releases a dormant scheduled order into the active queue ahead
// of its auto-fire time.
func (s *service) FireScheduled(ctx context.Context, orderID uuid.UUID, expectedVersion int64) (*models.Order, error) {
	return s.applyTransition(ctx, TransitionInput{
		OrderID:         orderID,
		ExpectedVersion: expectedVersion,
		Target:          enums.OrderStatusPending,
	}, true)
}

func (s *service) applyTransition(ctx context.Context, input TransitionInput, manualFire bool) (*models.Order, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithTenantID(ctx, tc.TenantID.String())
	ctx = s.logg.WithActor(ctx, tc.ActorID, string(tc.Role))
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ExpectedVersion < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected_version must be at least 1")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown status %q", input.Target)
	}
	if input.Target == enums.OrderStatusCancelled && !tc.Role.CanCancel() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not cancel orders")
	}

	now := s.now()
	var (
		before  *models.Order
		updated *models.Order
		result  TransitionResult
	)
	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	started := time.Now()
	err = s.tx.WithTx(writeCtx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForTenant(writeCtx, tc.TenantID, input.OrderID)
		if err != nil {
			return err
		}
		before = current
		if current.Version != input.ExpectedVersion {
			return conflictError(input, current)
		}
		if manualFire && !isDormantScheduled(current) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not waiting to be fired").
				WithDetails(map[string]any{"status": current.Status, "is_scheduled": current.IsScheduled})
		}
		result, err = Transition(current.Status, input.Target)
		if err != nil {
			return err
		}
		// A person moving a dormant scheduled order into the queue has fired it
		// by hand, whichever endpoint they used.
		if !manualFire && isDormantScheduled(current) && result.To == enums.OrderStatusPending &&
			tc.ActorID != tenant.SchedulerActor {
			manualFire = true
		}
		updated, err = repo.UpdateStatus(writeCtx, StatusChange{
			TenantID:        tc.TenantID,
			OrderID:         current.ID,
			ExpectedVersion: input.ExpectedVersion,
			From:            result.From,
			To:              result.To,
			TimestampColumn: result.TimestampColumn,
			Actor:           tc.ActorID,
			ActorRole:       tc.Role,
			Reason:          input.Reason,
			ManualFire:      manualFire,
			At:              now,
		})
		if err != nil {
			return err
		}
		return s.emitTransition(writeCtx, tx, tc, updated, result, input.Reason, now)
	})
	s.metrics.ObserveWrite("transition", time.Since(started))
	if err != nil {
		return nil, s.writeError(ctx, "transition", err)
	}

	s.metrics.IncTransition(string(result.From), string(result.To))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from_status": before.Status,
		"to_status":   updated.Status,
		"version":     updated.Version,
		"manual_fire": manualFire,
	}), "order status changed")

	s.broadcast(ctx, realtime.Event{
		Type:       realtime.EventOrderUpdated,
		TenantID:   updated.RestaurantID,
		OrderID:    updated.ID,
		Status:     updated.Status,
		Version:    updated.Version,
		OccurredAt: now,
	})
	return updated, nil
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, tc tenant.Context, order *models.Order, result TransitionResult, reason *string, at time.Time) error {
	events := []outbox.DomainEvent{{
		EventType: enums.EventOrderStatusChanged,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:      order.ID,
			RestaurantID: order.RestaurantID,
			FromStatus:   result.From,
			ToStatus:     result.To,
			Version:      order.Version,
			Actor:        tc.ActorID,
			ActorRole:    tc.Role,
			Reason:       reason,
			OccurredAt:   at,
		},
	}}
	for _, effect := range result.Effects {
		switch effect {
		case EffectRefundRequested:
			events = append(events, outbox.DomainEvent{
				EventType: enums.EventOrderRefundRequested,
				Data: payloads.OrderRefundRequestedEvent{
					OrderID:      order.ID,
					RestaurantID: order.RestaurantID,
					OrderNumber:  order.OrderNumber,
					FromStatus:   result.From,
					TotalCents:   order.TotalCents,
					Reason:       reason,
					Version:      order.Version,
				},
			})
		case EffectPaymentDue:
			events = append(events, outbox.DomainEvent{
				EventType: enums.EventOrderPaymentDue,
				Data: payloads.OrderPaymentDueEvent{
					OrderID:      order.ID,
					RestaurantID: order.RestaurantID,
					OrderNumber:  order.OrderNumber,
					TotalCents:   order.TotalCents,
					TipCents:     order.TipCents,
					Version:      order.Version,
				},
			})
		default:
			return fmt.Errorf("unhandled transition effect %q", effect)
		}
	}
	for i := range events {
		events[i].AggregateType = enums.AggregateOrder
		events[i].AggregateID = order.ID
		events[i].TenantID = order.RestaurantID
		events[i].Actor = actorRef(tc)
		events[i].OccurredAt = at
	}
	return s.outbox.Emit(ctx, tx, events...)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByIDForTenant(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, s.readError(ctx, "get", err)
	}
	return order, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByIDForTenant(ctx, tc.TenantID, orderID); err != nil {
		return nil, s.readError(ctx, "history", err)
	}
	rows, err := s.repo.ListHistory(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, s.readError(ctx, "history", err)
	}
	return rows, nil
}

func (s *service) ListActive(ctx context.Context, filter ActiveOrderFilter) ([]models.Order, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	for _, status := range filter.Statuses {
		if !status.IsValid() || IsTerminal(status) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "status %q is not an active status", status)
		}
	}
	for _, orderType := range filter.Types {
		if !orderType.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order type %q", orderType)
		}
	}
	if filter.Limit <= 0 || filter.Limit > s.activeLimit {
		filter.Limit = s.activeLimit
	}
	rows, err := s.repo.ListActive(ctx, tc.TenantID, filter)
	if err != nil {
		return nil, s.readError(ctx, "list_active", err)
	}
	return rows, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filter OrderListFilter) (*OrderList, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListOrders(ctx, tc.TenantID, params, filter)
	if err != nil {
		return nil, s.readError(ctx, "list", err)
	}
	return list, nil
}

// DueScheduled lists dormant scheduled orders across all restaurants whose
// auto-fire time is at or before now. It is reserved for the scheduler.
func (s *service) DueScheduled(ctx context.Context, now time.Time, limit int) ([]DueOrder, error) {
	rows, err := s.repo.FindDueScheduled(ctx, now, limit)
	if err != nil {
		return nil, s.readError(ctx, "due_scheduled", err)
	}
	out := make([]DueOrder, 0, len(rows))
	for _, row := range rows {
		if row.AutoFireTime == nil {
			continue
		}
		out = append(out, DueOrder{
			OrderID:      row.ID,
			RestaurantID: row.RestaurantID,
			Version:      row.Version,
			AutoFireTime: *row.AutoFireTime,
		})
	}
	return out, nil
}

func (s *service) priceItems(ctx context.Context, tenantID uuid.UUID, requested []CreateItemInput) ([]types.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(requested))
	seen := make(map[uuid.UUID]bool, len(requested))
	for _, item := range requested {
		if !seen[item.MenuItemID] {
			seen[item.MenuItemID] = true
			ids = append(ids, item.MenuItemID)
		}
	}
	catalog, err := s.catalog.Lookup(ctx, tenantID, ids)
	if err != nil {
		return nil, s.readError(ctx, "menu_lookup", err)
	}

	var unknown, unavailable []string
	items := make([]types.OrderItem, 0, len(requested))
	for _, req := range requested {
		menuItem, ok := catalog[req.MenuItemID]
		switch {
		case !ok:
			unknown = append(unknown, req.MenuItemID.String())
			continue
		case !menuItem.Available:
			unavailable = append(unavailable, req.MenuItemID.String())
			continue
		}
		items = append(items, types.OrderItem{
			MenuItemID:     menuItem.ID,
			Name:           menuItem.Name,
			Quantity:       req.Quantity,
			UnitPriceCents: menuItem.PriceCents,
			Modifiers:      req.Modifiers,
		})
	}
	if len(unknown) > 0 || len(unavailable) > 0 {
		sort.Strings(unknown)
		sort.Strings(unavailable)
		details := map[string]any{}
		if len(unknown) > 0 {
			details["unknown_items"] = unknown
		}
		if len(unavailable) > 0 {
			details["unavailable_items"] = unavailable
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order references items that cannot be sold").WithDetails(details)
	}
	return items, nil
}

func validateCreateInput(input *CreateOrderInput, now time.Time) error {
	if !input.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order type %q", input.Type)
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if len(input.Items) > maxOrderLines {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "order may not exceed %d lines", maxOrderLines)
	}
	for i, item := range input.Items {
		if item.MenuItemID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d missing menu_item_id", i)
		}
		if item.Quantity <= 0 || item.Quantity > maxItemQuantity {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d quantity must be between 1 and %d", i, maxItemQuantity)
		}
	}
	if input.TipCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "tip cannot be negative")
	}
	if input.SuppliedTotalCents != nil && *input.SuppliedTotalCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplied total cannot be negative")
	}

	if !input.IsScheduled {
		if input.ScheduledPickupTime != nil || input.AutoFireTime != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "scheduling times require is_scheduled")
		}
		return nil
	}
	if input.ScheduledPickupTime == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheduled orders require scheduled_pickup_time")
	}
	pickup := input.ScheduledPickupTime.UTC()
	if !pickup.After(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheduled_pickup_time must be in the future")
	}
	fire := pickup.Add(-defaultFireLead)
	if input.AutoFireTime != nil {
		fire = input.AutoFireTime.UTC()
	}
	if fire.After(pickup) {
		return pkgerrors.New(pkgerrors.CodeValidation, "auto_fire_time must not be after scheduled_pickup_time")
	}
	input.ScheduledPickupTime = &pickup
	input.AutoFireTime = &fire
	return nil
}

func conflictError(input TransitionInput, current *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order version is stale").WithDetails(map[string]any{
		"order_id":         current.ID,
		"expected_version": input.ExpectedVersion,
		"current_version":  current.Version,
		"current_status":   current.Status,
	})
}

// writeError maps a failed write transaction to the error taxonomy. Nothing
// from the transaction is visible when this is called.
func (s *service) writeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, dbpkg.ErrTxTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return s.persistenceFailure(ctx, op, err)
	case errors.Is(err, ErrOrderNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	case errors.Is(err, ErrVersionConflict):
		s.metrics.IncConflict()
		s.logg.Info(ctx, "order changed concurrently; caller must re-read")
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order version is stale")
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeConflict:
			s.metrics.IncConflict()
			s.logg.Info(ctx, "order changed concurrently; caller must re-read")
		case pkgerrors.CodeInvalidTransition:
			s.metrics.IncInvalidTransition()
			s.logg.Info(ctx, "order transition rejected")
		}
		return typed
	}
	return s.persistenceFailure(ctx, op, err)
}

func (s *service) persistenceFailure(ctx context.Context, op string, err error) error {
	s.metrics.IncPersistenceFailure(op)
	s.logg.Error(s.logg.WithField(ctx, "op", op), "order write failed", err)
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "order could not be saved")
}

func (s *service) readError(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrOrderNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	s.logg.Error(s.logg.WithField(ctx, "op", op), "order read failed", err)
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "orders unavailable")
}

func (s *service) broadcast(ctx context.Context, event realtime.Event) {
	if s.broadcaster == nil {
		return
	}
	if !s.broadcaster.Publish(event) {
		s.logg.Warn(s.logg.WithField(ctx, "version", event.Version), "realtime broadcast dropped")
	}
}

func actorRef(tc tenant.Context) *outbox.ActorRef {
	return &outbox.ActorRef{ActorID: tc.ActorID, TenantID: tc.TenantID, Role: string(tc.Role)}
}

func createdPayload(order *models.Order, mismatch *TotalsMismatch) payloads.OrderCreatedEvent {
	event := payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		RestaurantID:  order.RestaurantID,
		OrderNumber:   order.OrderNumber,
		Type:          order.Type,
		Status:        order.Status,
		SubtotalCents: order.SubtotalCents,
		TaxCents:      order.TaxCents,
		TipCents:      order.TipCents,
		TotalCents:    order.TotalCents,
		TaxRate:       order.TaxRate.String(),
		IsScheduled:   order.IsScheduled,
		AutoFireTime:  order.AutoFireTime,
	}
	if mismatch != nil {
		event.TotalsMismatch = &payloads.TotalsMismatch{
			SuppliedCents:   mismatch.SuppliedCents,
			ComputedCents:   mismatch.ComputedCents,
			DifferenceCents: mismatch.DifferenceCents,
		}
	}
	return event
}

func isDormantScheduled(o *models.Order) bool {
	return o.IsScheduled && !o.ManuallyFired && o.Status == enums.OrderStatusNew
}

package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/floorops-backend/api/responses"
	"github.com/angelmondragon/floorops-backend/api/validators"
	internalorders "github.com/angelmondragon/floorops-backend/internal/orders"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/pagination"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

// Create places a new order for the caller's restaurant. A supplied total that
// disagrees with the computed one is reported as a warning, never a rejection.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderType, err := enums.ParseOrderType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
			return
		}
		payload.Notes = validators.SanitizeOptional(payload.Notes, maxNotesLength)
		payload.CustomerName = validators.SanitizeOptional(payload.CustomerName, maxCustomerNameLength)
		payload.TableNumber = validators.SanitizeOptional(payload.TableNumber, maxTableNumberLength)

		result, err := svc.Create(r.Context(), payload.toInput(orderType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var warnings []types.Warning
		if result.Mismatch != nil {
			mismatch := pkgerrors.Newf(pkgerrors.CodeTotalsMismatch,
				"supplied total %d differs from computed total %d; computed total was kept",
				result.Mismatch.SuppliedCents, result.Mismatch.ComputedCents,
			).WithDetails(result.Mismatch)
			if warning, ok := responses.WarningFrom(mismatch); ok {
				warnings = append(warnings, warning)
			}
		}
		responses.WriteSuccessWithWarnings(w, http.StatusCreated, newOrderView(result.Order), warnings)
	}
}

// List returns one page of the order log, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filter, err := buildListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), params, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderListView{Orders: newOrderViews(list.Orders), NextCursor: list.NextCursor})
	}
}

// Active returns the live board: non-terminal orders, dormant scheduled orders excluded.
func Active(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		filter := internalorders.ActiveOrderFilter{}
		for _, raw := range validators.ParseQueryList(r, "status") {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
		for _, raw := range validators.ParseQueryList(r, "type") {
			orderType, err := enums.ParseOrderType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter"))
				return
			}
			filter.Types = append(filter.Types, orderType)
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		rows, err := svc.ListActive(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": newOrderViews(rows)})
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// History returns the status audit trail, oldest first.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"history": newHistoryViews(rows)})
	}
}

// UpdateStatus moves an order along the lifecycle. The caller must echo the
// version it read; a stale version is a 409 carrying the current state.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.ApplyTransition(r.Context(), internalorders.TransitionInput{
			OrderID:         orderID,
			ExpectedVersion: payload.ExpectedVersion,
			Target:          target,
			Reason:          validators.SanitizeOptional(payload.Reason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// Fire releases a dormant scheduled order to the kitchen before its auto-fire time.
func Fire(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload fireRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.FireScheduled(r.Context(), orderID, payload.ExpectedVersion)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func buildListFilter(r *http.Request) (internalorders.OrderListFilter, error) {
	var filter internalorders.OrderListFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		orderType, err := enums.ParseOrderType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		filter.Type = &orderType
	}
	from, err := validators.ParseQueryTime(r, "date_from")
	if err != nil {
		return filter, err
	}
	to, err := validators.ParseQueryTime(r, "date_to")
	if err != nil {
		return filter, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "date_to must not precede date_from")
	}
	filter.DateFrom = from
	filter.DateTo = to
	return filter, nil
}

package orders

import (
	"fmt"

	"github.com/angelmondragon/floorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
)

// Effect is an intent produced by a transition for an external collaborator.
// Effects are recorded in the outbox, never performed inline.
type Effect string

const (
	EffectRefundRequested Effect = "refund_requested"
	EffectPaymentDue      Effect = "payment_due"
)

type statusRule struct {
	next     []enums.OrderStatus
	terminal bool
	payable  bool
}

// transitionTable is the complete set of legal edges. Every status returned by
// enums.AllOrderStatuses must have an entry; validateTable enforces this at init.
var transitionTable = map[enums.OrderStatus]statusRule{
	enums.OrderStatusNew: {
		next: []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusCancelled},
	},
	enums.OrderStatusPending: {
		next: []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	},
	enums.OrderStatusConfirmed: {
		next: []enums.OrderStatus{enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	},
	enums.OrderStatusPreparing: {
		next: []enums.OrderStatus{enums.OrderStatusReady, enums.OrderStatusCancelled},
	},
	enums.OrderStatusReady: {
		next: []enums.OrderStatus{enums.OrderStatusPickedUp, enums.OrderStatusCancelled},
	},
	enums.OrderStatusPickedUp: {
		next: []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	},
	enums.OrderStatusCompleted: {
		terminal: true,
		payable:  true,
	},
	enums.OrderStatusCancelled: {
		terminal: true,
	},
}

func init() {
	if err := ValidateTable(); err != nil {
		panic(err)
	}
}

// TransitionResult describes an accepted status change.
type TransitionResult struct {
	From    enums.OrderStatus
	To      enums.OrderStatus
	Effects []Effect
	// TimestampColumn is the orders column stamped on entering To, empty when none.
	TimestampColumn string
}

// InitialStatus is the status every order is created in.
func InitialStatus() enums.OrderStatus {
	return enums.OrderStatusNew
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status enums.OrderStatus) bool {
	rule, ok := transitionTable[status]
	return ok && rule.terminal
}

// AllowedTransitions returns the legal targets from status.
func AllowedTransitions(status enums.OrderStatus) []enums.OrderStatus {
	rule, ok := transitionTable[status]
	if !ok {
		return nil
	}
	out := make([]enums.OrderStatus, len(rule.next))
	copy(out, rule.next)
	return out
}

// CanTransition reports whether current -> target is a declared edge.
func CanTransition(current, target enums.OrderStatus) bool {
	rule, ok := transitionTable[current]
	if !ok || rule.terminal {
		return false
	}
	for _, candidate := range rule.next {
		if candidate == target {
			return true
		}
	}
	return false
}

// Transition validates current -> target and returns the effects it implies.
// Illegal moves return an INVALID_TRANSITION error.
func Transition(current, target enums.OrderStatus) (TransitionResult, error) {
	if !CanTransition(current, target) {
		return TransitionResult{}, pkgerrors.New(
			pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", current, target),
		).WithDetails(map[string]any{
			"from":    current,
			"to":      target,
			"allowed": AllowedTransitions(current),
		})
	}
	column, err := timestampColumn(target)
	if err != nil {
		return TransitionResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "status has no timestamp rule")
	}

	result := TransitionResult{From: current, To: target, TimestampColumn: column}
	if target == enums.OrderStatusCancelled {
		result.Effects = append(result.Effects, EffectRefundRequested)
	}
	if transitionTable[target].payable {
		result.Effects = append(result.Effects, EffectPaymentDue)
	}
	return result, nil
}

func timestampColumn(status enums.OrderStatus) (string, error) {
	switch status {
	case enums.OrderStatusNew, enums.OrderStatusPending:
		return "", nil
	case enums.OrderStatusConfirmed:
		return "confirmed_at", nil
	case enums.OrderStatusPreparing:
		return "preparing_at", nil
	case enums.OrderStatusReady:
		return "ready_at", nil
	case enums.OrderStatusPickedUp:
		return "picked_up_at", nil
	case enums.OrderStatusCompleted:
		return "completed_at", nil
	case enums.OrderStatusCancelled:
		return "cancelled_at", nil
	default:
		return "", fmt.Errorf("unhandled order status %q", status)
	}
}

// ValidateTable checks the transition table against every declared status.
func ValidateTable() error {
	return validateTable(transitionTable, enums.AllOrderStatuses())
}

func validateTable(table map[enums.OrderStatus]statusRule, declared []enums.OrderStatus) error {
	known := make(map[enums.OrderStatus]bool, len(declared))
	for _, status := range declared {
		known[status] = true
	}
	for _, status := range declared {
		rule, ok := table[status]
		if !ok {
			return fmt.Errorf("order status %q has no transition rule", status)
		}
		if _, err := timestampColumn(status); err != nil {
			return err
		}
		if rule.terminal && len(rule.next) > 0 {
			return fmt.Errorf("terminal status %q declares transitions", status)
		}
		if !rule.terminal && len(rule.next) == 0 {
			return fmt.Errorf("status %q is a dead end but not terminal", status)
		}
		cancellable := false
		for _, next := range rule.next {
			if !known[next] {
				return fmt.Errorf("status %q transitions to undeclared status %q", status, next)
			}
			if next == enums.OrderStatusCancelled {
				cancellable = true
			}
		}
		if !rule.terminal && !cancellable {
			return fmt.Errorf("non-terminal status %q cannot be cancelled", status)
		}
	}
	for status := range table {
		if !known[status] {
			return fmt.Errorf("transition rule for undeclared status %q", status)
		}
	}
	if _, ok := table[InitialStatus()]; !ok {
		return fmt.Errorf("initial status %q missing", InitialStatus())
	}
	return nil
}

package enums

import "slices"

// OutboxAggregateType names the entity an outbox row describes.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

func (a OutboxAggregateType) IsValid() bool { return a == AggregateOrder }

// OutboxEventType is the domain event carried by an outbox row. Values are
// part of the wire contract with downstream subscribers.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderStatusChanged   OutboxEventType = "order_status_changed"
	EventOrderPaymentDue      OutboxEventType = "order_payment_due"
	EventOrderRefundRequested OutboxEventType = "order_refund_requested"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderPaymentDue,
	EventOrderRefundRequested,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(outboxEventTypes, e) }

// OutboxDLQErrorReason says why a row stopped being retried.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

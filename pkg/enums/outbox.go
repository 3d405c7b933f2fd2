package enums

// OutboxEventType names the domain events the engine emits for downstream
// collaborators (inventory deduction, GL posting, receipt delivery).
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order.created"
	EventOrderCompleted   OutboxEventType = "order.completed"
	EventOrderVoided      OutboxEventType = "order.voided"
	EventOrderRefunded    OutboxEventType = "order.refunded"
	EventSessionClosed    OutboxEventType = "session.closed"
	EventZReportGenerated OutboxEventType = "zreport.generated"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateDrawerSession OutboxAggregateType = "drawer_session"
	AggregateZReport       OutboxAggregateType = "z_report"
)

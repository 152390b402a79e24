package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated        = "order.created"
	TopicOrderStatusChanged  = "order.status_changed"
	TopicOrderPaymentLogged  = "order.payment_logged"
	TopicSupplierDeactivated = "supplier.deactivated"
)

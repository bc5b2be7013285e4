package orders

const (
	TopicOrderCreated   = "workshop.order.created"
	TopicOrderUpdated   = "workshop.order.updated"
	TopicPaymentAdded   = "workshop.order.payment.added"
	TopicOrderCompleted = "workshop.order.completed"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

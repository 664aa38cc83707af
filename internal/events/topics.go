package events

// Topic constants for domain events emitted by the back office.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderUpdated       = "order.updated"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderDeleted       = "order.deleted"
	TopicCustomerCreated    = "customer.created"
	TopicCustomerDeleted    = "customer.deleted"
	TopicTeamInvited        = "team.invited"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderUpdated,
		TopicOrderStatusChanged,
		TopicOrderDeleted,
		TopicCustomerCreated,
		TopicCustomerDeleted,
		TopicTeamInvited,
	}
}

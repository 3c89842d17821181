package order

import "stockhub-backend/internal/models"

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderApproved, models.OrderConfirmed, models.OrderCancelled},
	models.OrderApproved:  {models.OrderConfirmed, models.OrderShipped, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:   {models.OrderDelivered},
}

// CanTransition reports whether a group in from may move to to.
// Delivered and cancelled are terminal.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the states reachable from s, for clients rendering actions.
func NextStatuses(s models.OrderStatus) []models.OrderStatus {
	next := transitions[s]
	if next == nil {
		return []models.OrderStatus{}
	}
	return next
}

package domain

// TicketCounts aggregates tickets per status. Always computed on read.
type TicketCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
}

// Add increments the bucket for status by n.
func (c *TicketCounts) Add(status TicketStatus, n int) {
	switch status {
	case TicketStatusPending:
		c.Pending += n
	case TicketStatusInProgress:
		c.InProgress += n
	case TicketStatusClosed:
		c.Closed += n
	}
}

// Total returns the sum over all statuses.
func (c TicketCounts) Total() int {
	return c.Pending + c.InProgress + c.Closed
}

// CountTickets aggregates the tickets that fall within scope.
func CountTickets(scope Scope, tickets []Ticket) TicketCounts {
	var counts TicketCounts
	for i := range tickets {
		if scope.Includes(&tickets[i]) {
			counts.Add(tickets[i].Status, 1)
		}
	}
	return counts
}

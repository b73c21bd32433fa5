package domain

// ScopeKind describes which tickets a profile can see.
type ScopeKind int

const (
	// ScopeCreated limits visibility to tickets created by the profile.
	ScopeCreated ScopeKind = iota
	// ScopeAssigned limits visibility to tickets assigned to the profile.
	ScopeAssigned
	// ScopeAll grants visibility over every ticket.
	ScopeAll
)

// Scope is the visibility predicate for one profile.
type Scope struct {
	Kind      ScopeKind
	ProfileID string
}

// ScopeFor derives the visibility scope from the profile role. Any role value
// other than admin or staff falls back to the customer scope.
func ScopeFor(profile *Profile) Scope {
	switch profile.Role {
	case RoleAdmin:
		return Scope{Kind: ScopeAll, ProfileID: profile.ID}
	case RoleStaff:
		return Scope{Kind: ScopeAssigned, ProfileID: profile.ID}
	case RoleCustomer:
		return Scope{Kind: ScopeCreated, ProfileID: profile.ID}
	}
	return Scope{Kind: ScopeCreated, ProfileID: profile.ID}
}

// Includes applies the scope predicate to a single ticket.
func (s Scope) Includes(ticket *Ticket) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeAssigned:
		return ticket.IsAssignedTo(s.ProfileID)
	case ScopeCreated:
		return ticket.CreatedByID == s.ProfileID
	}
	return false
}

// CanView reports whether the profile may read the ticket.
func CanView(profile *Profile, ticket *Ticket) bool {
	return ScopeFor(profile).Includes(ticket)
}

// VisibleTickets filters tickets down to what the profile may read, keeping order.
func VisibleTickets(profile *Profile, tickets []Ticket) []Ticket {
	scope := ScopeFor(profile)
	visible := make([]Ticket, 0, len(tickets))
	for i := range tickets {
		if scope.Includes(&tickets[i]) {
			visible = append(visible, tickets[i])
		}
	}
	return visible
}

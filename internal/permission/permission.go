// Package permission holds the role-scoped access decisions for tickets.
// Every function is pure; the default answer is deny.
package permission

import "github.com/spec-kit/helpdesk/internal/domain"

// CanRead reports whether the principal may view the ticket. Admins and
// agents see the full pool; users see only their own tickets.
func CanRead(principal *domain.User, ticket *domain.Ticket) bool {
	if principal == nil || ticket == nil {
		return false
	}
	switch principal.Role {
	case domain.RoleAdmin, domain.RoleAgent:
		return true
	case domain.RoleUser:
		return ticket.CreatedBy == principal.ID
	}
	return false
}

// CanComment mirrors read access: anyone who can see a ticket can comment on it.
func CanComment(principal *domain.User, ticket *domain.Ticket) bool {
	return CanRead(principal, ticket)
}

// CanUpdate reports whether the principal may touch the ticket at all.
// Which fields they may touch is a separate question (UpdatableFields).
// An agent loses update access once the ticket is claimed by someone else.
func CanUpdate(principal *domain.User, ticket *domain.Ticket) bool {
	if principal == nil || ticket == nil {
		return false
	}
	switch principal.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAgent:
		return ticket.AssignedTo == nil || *ticket.AssignedTo == principal.ID
	case domain.RoleUser:
		return ticket.CreatedBy == principal.ID
	}
	return false
}

// CanAssign reports whether the principal may change assigned_to.
func CanAssign(principal *domain.User) bool {
	return principal != nil && principal.Role == domain.RoleAdmin
}

// UpdatableFields returns the patch fields a role may set, or nil when the
// role is unrestricted. Fields outside this set are silently dropped for
// users rather than failing the request.
func UpdatableFields(role domain.Role) map[string]bool {
	if role == domain.RoleUser {
		return map[string]bool{"title": true, "description": true}
	}
	return nil
}

// ListScope returns the creator filter to apply before listing. Users see
// only self-created tickets; agents and admins see everything. A nil
// principal or an unknown role gets an empty scope that matches no creator.
func ListScope(principal *domain.User) *string {
	deny := ""
	if principal == nil {
		return &deny
	}
	switch principal.Role {
	case domain.RoleAdmin, domain.RoleAgent:
		return nil
	case domain.RoleUser:
		id := principal.ID
		return &id
	}
	return &deny
}

package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTicketRequest payload. Pointers distinguish absent fields; an empty
// assigned_to clears the assignment. Version carries the expected version
// for the optimistic lock.
type UpdateTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	AssignedTo  *string `json:"assigned_to"`
	Version     *int    `json:"version"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// TicketResponse carries a ticket with resolved user references.
type TicketResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedBy   domain.UserSummary  `json:"created_by"`
	AssignedTo  *domain.UserSummary `json:"assigned_to"`
	SLADeadline time.Time           `json:"sla_deadline"`
	Version     int                 `json:"version"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListTicketsResponse is the listing envelope.
type ListTicketsResponse struct {
	Tickets    []TicketResponse `json:"tickets"`
	Pagination Pagination       `json:"pagination"`
}

// CommentResponse carries a comment with its author resolved.
type CommentResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	Author    domain.UserSummary `json:"author"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"created_at"`
}

// FromTicketResult maps a service result to the wire shape.
func FromTicketResult(result *service.TicketResult) TicketResponse {
	return TicketResponse{
		ID:          result.Ticket.ID,
		Title:       result.Ticket.Title,
		Description: result.Ticket.Description,
		Status:      result.Ticket.Status,
		CreatedBy:   result.Creator,
		AssignedTo:  result.Assignee,
		SLADeadline: result.Ticket.SLADeadline,
		Version:     result.Ticket.Version,
		CreatedAt:   result.Ticket.CreatedAt,
		UpdatedAt:   result.Ticket.UpdatedAt,
	}
}

// FromCommentResult maps a service result to the wire shape.
func FromCommentResult(result *service.CommentResult) CommentResponse {
	return CommentResponse{
		ID:        result.Comment.ID,
		TicketID:  result.Comment.TicketID,
		Author:    result.Author,
		Text:      result.Comment.Text,
		CreatedAt: result.Comment.CreatedAt,
	}
}

package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether the value is a known status.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000

	// SLAWindow is the resolution commitment attached at creation time.
	// The deadline never moves afterwards.
	SLAWindow = 48 * time.Hour
)

// Ticket is the aggregate for support requests. Version starts at 0 and is
// incremented by the store in the same write as every field mutation.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	CreatedBy   string
	AssignedTo  *string
	SLADeadline time.Time
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateTitle checks creation/update constraints on the title.
func ValidateTitle(title string) *FieldError {
	title = strings.TrimSpace(title)
	if title == "" {
		return &FieldError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return &FieldError{Field: "title", Message: "title must be at most 200 characters"}
	}
	return nil
}

// ValidateDescription checks creation/update constraints on the description.
func ValidateDescription(description string) *FieldError {
	description = strings.TrimSpace(description)
	if description == "" {
		return &FieldError{Field: "description", Message: "description is required"}
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return &FieldError{Field: "description", Message: "description must be at most 2000 characters"}
	}
	return nil
}

// FieldError names the field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

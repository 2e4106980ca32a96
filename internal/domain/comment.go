package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxCommentLen = 1000

// Comment is an append-only note on a ticket thread. Comments are never
// updated or deleted.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

// ValidateCommentText checks constraints on comment text.
func ValidateCommentText(text string) *FieldError {
	text = strings.TrimSpace(text)
	if text == "" {
		return &FieldError{Field: "text", Message: "text is required"}
	}
	if utf8.RuneCountInString(text) > MaxCommentLen {
		return &FieldError{Field: "text", Message: "text must be at most 1000 characters"}
	}
	return nil
}

package domain

import (
	"strings"
	"testing"
)

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("printer on fire"); err != nil {
		t.Fatalf("valid title rejected: %v", err)
	}
	if err := ValidateTitle("   "); err == nil || err.Field != "title" {
		t.Fatalf("blank title should fail on field title, got %v", err)
	}
	if err := ValidateTitle(strings.Repeat("x", MaxTitleLen)); err != nil {
		t.Fatalf("title at the limit rejected: %v", err)
	}
	if err := ValidateTitle(strings.Repeat("x", MaxTitleLen+1)); err == nil {
		t.Fatalf("title over the limit accepted")
	}
}

func TestValidateLimitsCountCharactersNotBytes(t *testing.T) {
	// Two bytes per rune; well under the limits by character count.
	if err := ValidateTitle(strings.Repeat("é", 150)); err != nil {
		t.Fatalf("150-character multibyte title rejected: %v", err)
	}
	if err := ValidateTitle(strings.Repeat("é", MaxTitleLen+1)); err == nil {
		t.Fatalf("multibyte title over the limit accepted")
	}
	if err := ValidateDescription(strings.Repeat("é", MaxDescriptionLen)); err != nil {
		t.Fatalf("multibyte description at the limit rejected: %v", err)
	}
	if err := ValidateCommentText(strings.Repeat("é", MaxCommentLen)); err != nil {
		t.Fatalf("multibyte comment at the limit rejected: %v", err)
	}
}

func TestValidateDescription(t *testing.T) {
	if err := ValidateDescription(""); err == nil || err.Field != "description" {
		t.Fatalf("empty description should fail on field description, got %v", err)
	}
	if err := ValidateDescription(strings.Repeat("x", MaxDescriptionLen+1)); err == nil {
		t.Fatalf("description over the limit accepted")
	}
}

func TestValidateCommentText(t *testing.T) {
	if err := ValidateCommentText("works for me"); err != nil {
		t.Fatalf("valid comment rejected: %v", err)
	}
	if err := ValidateCommentText(""); err == nil || err.Field != "text" {
		t.Fatalf("empty comment should fail on field text, got %v", err)
	}
	if err := ValidateCommentText(strings.Repeat("x", MaxCommentLen+1)); err == nil {
		t.Fatalf("comment over the limit accepted")
	}
}

func TestRoleAssignable(t *testing.T) {
	if RoleUser.Assignable() {
		t.Fatalf("user role must not be assignable")
	}
	if !RoleAgent.Assignable() || !RoleAdmin.Assignable() {
		t.Fatalf("agent and admin must be assignable")
	}
}

func TestValidTicketStatus(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed} {
		if !ValidTicketStatus(status) {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	if ValidTicketStatus("resolved") {
		t.Fatalf("unknown status accepted")
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/idempotency"
	"github.com/spec-kit/helpdesk/internal/permission"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService coordinates ticket workflows: role-gated creation, listing
// with combined relational+text search, version-checked updates and
// append-only comment threads.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	idem       idempotency.Store
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Idempotency idempotency.Store
	Dispatcher  events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		idem:       deps.Idempotency,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// TicketPatch carries the fields present in an update request. Nil means the
// field was absent. An empty AssignedTo clears the assignment.
type TicketPatch struct {
	Title           *string
	Description     *string
	Status          *string
	AssignedTo      *string
	ExpectedVersion *int
}

// TicketListInput describes listing parameters.
type TicketListInput struct {
	Limit  int
	Offset int
	Query  string
}

// TicketResult is a ticket with its user references resolved.
type TicketResult struct {
	Ticket   domain.Ticket       `json:"ticket"`
	Creator  domain.UserSummary  `json:"creator"`
	Assignee *domain.UserSummary `json:"assignee,omitempty"`
}

// TicketPage is one page of a listing plus pagination metadata.
type TicketPage struct {
	Items   []TicketResult
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// CommentResult is a comment with its author resolved.
type CommentResult struct {
	Comment domain.Comment
	Author  domain.UserSummary
}

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// CreateTicket creates a ticket for the principal. When idemKey is non-empty
// a previously committed response for the same key is replayed verbatim,
// without re-validating input. The replayed return reports true.
func (s *TicketService) CreateTicket(ctx context.Context, principal *domain.User, input TicketCreateInput, idemKey string) (*TicketResult, bool, error) {
	if idemKey != "" {
		cached, err := s.idem.Begin(ctx, idemKey)
		if err != nil {
			if errors.Is(err, idempotency.ErrInFlight) {
				return nil, false, apperrors.NewConflict("request with this idempotency key is already in progress")
			}
			return nil, false, apperrors.NewStoreUnavailable(err)
		}
		if cached != nil {
			var result TicketResult
			if err := json.Unmarshal(cached.Body, &result); err != nil {
				return nil, false, apperrors.NewInternalError(err)
			}
			return &result, true, nil
		}
	}

	result, err := s.createTicket(ctx, principal, input)
	if idemKey != "" {
		if err != nil {
			// Failed attempts are never cached; release the key for retries.
			_ = s.idem.Abort(ctx, idemKey)
		} else if body, marshalErr := json.Marshal(result); marshalErr == nil {
			_ = s.idem.Commit(ctx, idemKey, idempotency.CachedResponse{Body: body})
		}
	}
	return result, false, err
}

func (s *TicketService) createTicket(ctx context.Context, principal *domain.User, input TicketCreateInput) (*TicketResult, error) {
	if ferr := domain.ValidateTitle(input.Title); ferr != nil {
		return nil, apperrors.NewFieldValidation(ferr.Field, ferr.Message)
	}
	if ferr := domain.ValidateDescription(input.Description); ferr != nil {
		return nil, apperrors.NewFieldValidation(ferr.Field, ferr.Message)
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		CreatedBy:   principal.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorFor(principal),
		Payload: events.TicketCreatedPayload{
			Title:       ticket.Title,
			SLADeadline: ticket.SLADeadline,
		},
	})
	return &TicketResult{Ticket: *ticket, Creator: principal.Summary()}, nil
}

// GetTicket fetches a ticket the principal is allowed to see.
func (s *TicketService) GetTicket(ctx context.Context, principal *domain.User, ticketID string) (*TicketResult, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !permission.CanRead(principal, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.resolve(ctx, ticket)
}

// ListTickets returns a role-scoped, optionally searched, paginated listing.
// A search term matches the title, the description, or the text of any
// comment on the ticket.
func (s *TicketService) ListTickets(ctx context.Context, principal *domain.User, input TicketListInput) (*TicketPage, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	scope := permission.ListScope(principal)
	if scope != nil && *scope == "" {
		return &TicketPage{Items: []TicketResult{}, Limit: limit, Offset: offset}, nil
	}

	tickets, total, err := s.tickets.Search(ctx, repository.TicketSearch{
		CreatedBy: scope,
		Term:      input.Query,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	refs := map[string]domain.UserSummary{}
	items := make([]TicketResult, 0, len(tickets))
	for i := range tickets {
		result, err := s.resolveCached(ctx, &tickets[i], refs)
		if err != nil {
			return nil, err
		}
		items = append(items, *result)
	}

	return &TicketPage{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}, nil
}

// UpdateTicket applies a version-checked patch. Concurrent writers racing on
// the same starting version never both succeed; the loser gets a retryable
// conflict. Fields a user-role principal may not touch are silently dropped
// rather than failing the request.
func (s *TicketService) UpdateTicket(ctx context.Context, principal *domain.User, ticketID string, patch TicketPatch) (*TicketResult, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != ticket.Version {
		return nil, apperrors.NewVersionConflict("ticket has been modified by another user")
	}

	if !permission.CanUpdate(principal, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	if allowed := permission.UpdatableFields(principal.Role); allowed != nil {
		if !allowed["title"] {
			patch.Title = nil
		}
		if !allowed["description"] {
			patch.Description = nil
		}
		patch.Status = nil
		patch.AssignedTo = nil
	}

	var touched []string
	assigneeChanged := false

	if patch.AssignedTo != nil {
		if !permission.CanAssign(principal) {
			return nil, apperrors.NewForbidden("only admins can assign tickets")
		}
		if *patch.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			assignee, err := s.users.GetByID(ctx, *patch.AssignedTo)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, apperrors.NewInvalidAssignee("assignee must be an agent or admin")
				}
				return nil, apperrors.MapError(err)
			}
			if !assignee.Role.Assignable() {
				return nil, apperrors.NewInvalidAssignee("assignee must be an agent or admin")
			}
			id := assignee.ID
			ticket.AssignedTo = &id
		}
		touched = append(touched, "assigned_to")
		assigneeChanged = true
	}

	if patch.Title != nil {
		if ferr := domain.ValidateTitle(*patch.Title); ferr != nil {
			return nil, apperrors.NewFieldValidation(ferr.Field, ferr.Message)
		}
		ticket.Title = strings.TrimSpace(*patch.Title)
		touched = append(touched, "title")
	}
	if patch.Description != nil {
		if ferr := domain.ValidateDescription(*patch.Description); ferr != nil {
			return nil, apperrors.NewFieldValidation(ferr.Field, ferr.Message)
		}
		ticket.Description = strings.TrimSpace(*patch.Description)
		touched = append(touched, "description")
	}
	if patch.Status != nil {
		status := domain.TicketStatus(*patch.Status)
		if !domain.ValidTicketStatus(status) {
			return nil, apperrors.NewFieldValidation("status", "status must be open, in_progress or closed")
		}
		ticket.Status = status
		touched = append(touched, "status")
	}

	// Version increments on every successful update, even an empty patch;
	// the increment and the field writes are a single statement. The loaded
	// version is always the write precondition, so a patch without an
	// explicit version still loses to a concurrent writer instead of
	// reverting their fields from this stale snapshot.
	if err := s.tickets.UpdateVersioned(ctx, ticket, ticket.Version); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, apperrors.NewVersionConflict("ticket has been modified by another user")
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actorFor(principal),
		Payload: events.TicketUpdatedPayload{
			Fields:     touched,
			NewStatus:  ticket.Status,
			NewVersion: ticket.Version,
		},
	})
	if assigneeChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    actorFor(principal),
			Payload:  events.TicketAssignedPayload{AssigneeID: ticket.AssignedTo},
		})
	}

	return s.resolve(ctx, ticket)
}

// AddComment appends a comment to a ticket the principal can read.
func (s *TicketService) AddComment(ctx context.Context, principal *domain.User, ticketID, text string) (*CommentResult, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !permission.CanComment(principal, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if ferr := domain.ValidateCommentText(text); ferr != nil {
		return nil, apperrors.NewFieldValidation(ferr.Field, ferr.Message)
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: principal.ID,
		Text:     strings.TrimSpace(text),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    actorFor(principal),
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			TextPreview: textPreview(comment.Text, 120),
		},
	})
	return &CommentResult{Comment: *comment, Author: principal.Summary()}, nil
}

// ListComments returns a ticket's comments ascending by creation time.
func (s *TicketService) ListComments(ctx context.Context, principal *domain.User, ticketID string) ([]CommentResult, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !permission.CanRead(principal, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	refs := map[string]domain.UserSummary{}
	result := make([]CommentResult, 0, len(comments))
	for _, comment := range comments {
		author, err := s.userSummary(ctx, comment.AuthorID, refs)
		if err != nil {
			return nil, err
		}
		result = append(result, CommentResult{Comment: comment, Author: author})
	}
	return result, nil
}

// ListAssignableUsers returns the agents and admins tickets can be routed to.
func (s *TicketService) ListAssignableUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListAssignable(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) resolve(ctx context.Context, ticket *domain.Ticket) (*TicketResult, error) {
	return s.resolveCached(ctx, ticket, map[string]domain.UserSummary{})
}

func (s *TicketService) resolveCached(ctx context.Context, ticket *domain.Ticket, refs map[string]domain.UserSummary) (*TicketResult, error) {
	creator, err := s.userSummary(ctx, ticket.CreatedBy, refs)
	if err != nil {
		return nil, err
	}
	result := &TicketResult{Ticket: *ticket, Creator: creator}
	if ticket.AssignedTo != nil {
		assignee, err := s.userSummary(ctx, *ticket.AssignedTo, refs)
		if err != nil {
			return nil, err
		}
		result.Assignee = &assignee
	}
	return result, nil
}

func (s *TicketService) userSummary(ctx context.Context, userID string, refs map[string]domain.UserSummary) (domain.UserSummary, error) {
	if ref, ok := refs[userID]; ok {
		return ref, nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, apperrors.MapError(err)
	}
	ref := user.Summary()
	refs[userID] = ref
	return ref, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorFor(principal *domain.User) events.Actor {
	return events.Actor{UserID: principal.ID, Role: principal.Role}
}

func textPreview(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}

package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/events"
	"github.com/spec-kit/ticketing-system/internal/repository"
	"github.com/spec-kit/ticketing-system/internal/storage"
	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

// PageSize is the number of tickets per listing page.
const PageSize = 10

// User-facing ticket messages.
const (
	MsgTicketClosed        = "Ticket successfully closed."
	MsgTicketAlreadyClosed = "Ticket is already closed."
	MsgCloseForbidden      = "You do not have permission to close this ticket."
	MsgTicketAssigned      = "Ticket assigned successfully."
	MsgAssignForbidden     = "You don't have permission to assign tickets."
	MsgAssigneeNotStaff    = "Tickets can only be assigned to staff members."
	MsgAssigneeInvalid     = "Select a valid staff member."
)

// TicketFiles stores ticket attachments by reference.
type TicketFiles interface {
	SaveTicketFile(ctx context.Context, name string, r io.Reader) (string, error)
	OpenTicketFile(ref string) (io.ReadCloser, error)
	RemoveTicketFile(ref string) error
}

// TicketService coordinates ticket workflows. Permission checks for every
// operation live here.
type TicketService struct {
	tickets    repository.TicketRepository
	profiles   repository.ProfileRepository
	history    repository.TicketHistoryRepository
	tx         repository.Transactor
	files      TicketFiles
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	ProfileRepo repository.ProfileRepository
	HistoryRepo repository.TicketHistoryRepository
	Transactor  repository.Transactor
	Files       TicketFiles
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	File        *FileUpload
}

// FileUpload is an attachment supplied at creation.
type FileUpload struct {
	Name    string
	Content io.Reader
}

// TicketListFilter narrows a listing within the caller's visibility.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm string
}

// TicketPage is one page of visible tickets plus the caller's counters.
type TicketPage struct {
	Tickets    []domain.Ticket
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	Counts     domain.TicketCounts
}

// TicketDetail is a visible ticket with its participants and audit trail.
type TicketDetail struct {
	Ticket     *domain.Ticket
	CreatedBy  *domain.Profile
	AssignedTo *domain.Profile
	History    []domain.TicketHistory
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		profiles:   deps.ProfileRepo,
		history:    deps.HistoryRepo,
		tx:         deps.Transactor,
		files:      deps.Files,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket creates a pending, medium priority ticket owned by creator.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.Profile, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if err := requireFields(map[string]string{"subject": subject, "description": description}); err != nil {
		return nil, err
	}

	var file *string
	if input.File != nil && s.files != nil {
		ref, err := s.files.SaveTicketFile(ctx, input.File.Name, input.File.Content)
		if err != nil {
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, apperrors.NewFieldError("file", "File is too large.")
			}
			return nil, apperrors.NewInternalError(err)
		}
		file = &ref
	}

	ticket := domain.NewTicket(uuid.NewString(), creator.ID, subject, description, file)
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if file != nil {
			if rmErr := s.files.RemoveTicketFile(*file); rmErr != nil {
				s.logger.Warn("remove orphaned attachment", zap.String("file", *file), zap.Error(rmErr))
			}
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.TicketID), zap.String("profile_id", creator.ID))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.TicketID, creator, events.TicketCreatedPayload{
		Subject:  ticket.Subject,
		Priority: ticket.Priority,
		HasFile:  ticket.File != nil,
	}))
	return ticket, nil
}

// ListTickets returns one page of the tickets visible to viewer, most recently
// updated first, with the viewer's counters.
func (s *TicketService) ListTickets(ctx context.Context, viewer *domain.Profile, page int, filter TicketListFilter) (*TicketPage, error) {
	if page < 1 {
		page = 1
	}
	repoFilter := repository.TicketFilter{
		Scope:      domain.ScopeFor(viewer),
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      PageSize,
		Offset:     (page - 1) * PageSize,
	}

	total, err := s.tickets.Count(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	totalPages := (total + PageSize - 1) / PageSize
	if page > 1 && page > totalPages {
		return nil, apperrors.NewNotFound("page", map[string]any{"page": page})
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts, err := s.tickets.CountByStatus(ctx, repoFilter.Scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return &TicketPage{
		Tickets:    tickets,
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: totalPages,
		Counts:     counts,
	}, nil
}

// GetTicketDetail returns a ticket the viewer may see. Missing and invisible
// tickets produce the same not found error.
func (s *TicketService) GetTicketDetail(ctx context.Context, viewer *domain.Profile, ticketID string) (*TicketDetail, error) {
	ticket, err := s.visibleTicket(ctx, viewer, ticketID)
	if err != nil {
		return nil, err
	}

	detail := &TicketDetail{Ticket: ticket}
	if detail.CreatedBy, err = s.profiles.GetByID(ctx, ticket.CreatedByID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	if ticket.AssignedToID != nil {
		if detail.AssignedTo, err = s.profiles.GetByID(ctx, *ticket.AssignedToID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.MapError(err)
		}
	}
	if detail.History, err = s.history.ListByTicket(ctx, ticket.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// OpenAttachment returns the stored file of a ticket the viewer may see, with
// the name it was uploaded under. The caller closes the reader.
func (s *TicketService) OpenAttachment(ctx context.Context, viewer *domain.Profile, ticketID string) (string, io.ReadCloser, error) {
	ticket, err := s.visibleTicket(ctx, viewer, ticketID)
	if err != nil {
		return "", nil, err
	}
	if ticket.File == nil || s.files == nil {
		return "", nil, apperrors.NewNotFound("file", nil)
	}
	r, err := s.files.OpenTicketFile(*ticket.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, apperrors.NewNotFound("file", nil)
		}
		return "", nil, apperrors.NewInternalError(err)
	}
	return storage.DisplayName(*ticket.File), r, nil
}

// AssignTicket hands a ticket to a staff profile and moves it to in_progress.
// Only admins may assign. Re-assignment is allowed and closed tickets are not
// guarded.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.Profile, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !actor.Role.CanAssign() {
		return nil, apperrors.NewForbidden(MsgAssignForbidden)
	}

	ticket, err := s.visibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(assigneeID); err != nil {
		return nil, apperrors.NewFieldError("assigned_to", MsgAssigneeInvalid)
	}
	assignee, err := s.profiles.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewFieldError("assigned_to", MsgAssigneeInvalid)
		}
		return nil, apperrors.MapError(err)
	}

	if ticket.Status == domain.TicketStatusClosed {
		s.logger.Warn("assigning a closed ticket", zap.String("ticket_id", ticket.TicketID))
	}

	oldAssignee := ticket.AssignedToID
	oldStatus := ticket.Status
	if err := ticket.Assign(assignee); err != nil {
		if errors.Is(err, domain.ErrAssigneeNotStaff) {
			return nil, apperrors.NewFieldError("assigned_to", MsgAssigneeNotStaff)
		}
		return nil, apperrors.MapError(err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := s.recordChange(ctx, actor, ticket, domain.ChangeTypeAssignee,
			map[string]any{"assigned_to": derefOrNil(oldAssignee)},
			map[string]any{"assigned_to": derefOrNil(ticket.AssignedToID)}); err != nil {
			return err
		}
		if oldStatus != ticket.Status {
			return s.recordStatusChange(ctx, actor, ticket, oldStatus)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("assignee_id", assignee.ID),
		zap.String("actor_id", actor.ID))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketAssigned, ticket.TicketID, actor, events.TicketAssignedPayload{
		PreviousAssigneeID: oldAssignee,
		AssigneeID:         assignee.ID,
		OldStatus:          oldStatus,
	}))
	return ticket, nil
}

// CloseTicket moves a visible ticket to closed. Only admins and staff may
// close. The closing message is logged and published but never stored.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.Profile, ticketID, closingMessage string) (*domain.Ticket, error) {
	if !actor.Role.CanClose() {
		return nil, apperrors.NewForbidden(MsgCloseForbidden)
	}

	ticket, err := s.visibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if err := ticket.Close(); err != nil {
		if errors.Is(err, domain.ErrTicketClosed) {
			return nil, apperrors.NewStateError(MsgTicketAlreadyClosed, err)
		}
		return nil, apperrors.MapError(err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.recordStatusChange(ctx, actor, ticket, oldStatus)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	closingMessage = strings.TrimSpace(closingMessage)
	s.logger.Info("ticket closed",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("actor_id", actor.ID),
		zap.String("closing_message", closingMessage))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketClosed, ticket.TicketID, actor, events.TicketClosedPayload{
		OldStatus:      oldStatus,
		ClosingMessage: closingMessage,
	}))
	return ticket, nil
}

func (s *TicketService) visibleTicket(ctx context.Context, viewer *domain.Profile, ticketID string) (*domain.Ticket, error) {
	notFound := apperrors.NewNotFound("ticket", nil)
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, notFound
	}
	ticket, err := s.tickets.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound
		}
		return nil, apperrors.MapError(err)
	}
	if !domain.CanView(viewer, ticket) {
		return nil, notFound
	}
	return ticket, nil
}

func (s *TicketService) recordStatusChange(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket, oldStatus domain.TicketStatus) error {
	return s.recordChange(ctx, actor, ticket, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": ticket.Status})
}

func (s *TicketService) recordChange(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket, changeType domain.TicketChangeType, oldValue, newValue map[string]any) error {
	actorID := actor.ID
	return s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: &actorID,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func derefOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing-system/internal/api/dto"
	"github.com/spec-kit/ticketing-system/internal/api/validate"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/service"
	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}

	page, err := h.service.ListTickets(c.UserContext(), principal.Profile, parseInt(c.Query("page"), 1), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketPageResponse{
		Tickets:    dto.NewTicketSummaries(page.Tickets),
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Counts:     dto.NewCountsResponse(page.Counts),
	}})
}

// CreateTicket POST /tickets/create. Accepts JSON, urlencoded or multipart
// bodies; a multipart "file" part becomes the attachment.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	input := service.TicketCreateInput{Subject: req.Subject, Description: req.Description}
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if files := form.File["file"]; len(files) > 0 {
			file, err := files[0].Open()
			if err != nil {
				return apperrors.NewFieldError("file", "The submitted file could not be read.")
			}
			defer file.Close()
			input.File = &service.FileUpload{Name: files[0].Filename, Content: file}
		}
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal.Profile, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// GetTicket GET /tickets/:ticket_id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicketDetail(c.UserContext(), principal.Profile, c.Params("ticket_id"))
	if err != nil {
		return err
	}

	resp := dto.TicketDetailResponse{
		TicketSummary: dto.NewTicketSummary(detail.Ticket),
		Description:   detail.Ticket.Description,
		History:       dto.NewTicketHistory(detail.History),
	}
	if detail.CreatedBy != nil {
		creator := dto.NewProfileResponse(detail.CreatedBy)
		resp.Creator = &creator
	}
	if detail.AssignedTo != nil {
		assignee := dto.NewProfileResponse(detail.AssignedTo)
		resp.Assignee = &assignee
	}
	return c.JSON(fiber.Map{"data": resp})
}

// DownloadFile GET /tickets/:ticket_id/file.
func (h *TicketsHandler) DownloadFile(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	name, r, err := h.service.OpenAttachment(c.UserContext(), principal.Profile, c.Params("ticket_id"))
	if err != nil {
		return err
	}
	c.Attachment(name)
	return c.SendStream(r)
}

// AssignTicket POST /tickets/:ticket_id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	ticket, err := h.service.AssignTicket(c.UserContext(), principal.Profile, c.Params("ticket_id"), req.AssignedTo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket), "message": service.MsgTicketAssigned})
}

// CloseTicket POST /tickets/:ticket_id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.CloseTicket(c.UserContext(), principal.Profile, c.Params("ticket_id"), req.ClosingMessage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket), "message": service.MsgTicketClosed})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{SearchTerm: strings.TrimSpace(c.Query("q"))}
	for _, part := range splitList(c.Query("status")) {
		status, err := domain.ParseTicketStatus(part)
		if err != nil {
			return filter, apperrors.NewFieldError("status", err.Error())
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitList(c.Query("priority")) {
		priority, err := domain.ParseTicketPriority(part)
		if err != nil {
			return filter, apperrors.NewFieldError("priority", err.Error())
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	return filter, nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

package http

import (
	"strconv"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// Durations travel as integer milliseconds, instants as RFC 3339 strings.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := formatTime(*t)
	return &value
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID          int64                `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      string               `json:"status"`
	Priority    string               `json:"priority"`
	RequesterID string               `json:"requesterId"`
	AssigneeID  *string              `json:"assigneeId"`
	SLA         domain.ClockSnapshot `json:"sla"`
	OLA         domain.ClockSnapshot `json:"ola"`
	Version     int                  `json:"version"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   *string              `json:"updatedAt"`
	ClosedAt    *string              `json:"closedAt"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	var assigneeID *string
	if ticket.AssigneeID != nil {
		value := ticket.AssigneeID.String()
		assigneeID = &value
	}

	return TicketDTO{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		RequesterID: ticket.RequesterID.String(),
		AssigneeID:  assigneeID,
		SLA:         domain.NewClockSnapshot(&ticket.SLA),
		OLA:         domain.NewClockSnapshot(&ticket.OLA),
		Version:     ticket.Version,
		CreatedAt:   formatTime(ticket.CreatedAt),
		UpdatedAt:   formatTimePtr(ticket.UpdatedAt),
		ClosedAt:    formatTimePtr(ticket.ClosedAt),
	}
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, toTicketDTO(ticket))
	}
	return response
}

// CommentDTO defines the JSON response for comments.
type CommentDTO struct {
	ID        string `json:"id"`
	TicketID  int64  `json:"ticketId"`
	AuthorID  string `json:"authorId"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

func toCommentDTO(comment *domain.Comment) CommentDTO {
	return CommentDTO{
		ID:        strconv.FormatInt(comment.ID, 10),
		TicketID:  comment.TicketID,
		AuthorID:  comment.AuthorID.String(),
		Body:      comment.Body,
		CreatedAt: formatTime(comment.CreatedAt),
	}
}

func toCommentDTOs(comments []*domain.Comment) []CommentDTO {
	response := make([]CommentDTO, 0, len(comments))
	for _, comment := range comments {
		response = append(response, toCommentDTO(comment))
	}
	return response
}

// CalendarDTO is the wire form of a business calendar.
type CalendarDTO struct {
	Timezone string `json:"timezone"`
	WorkDays []int  `json:"workDays"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

func toCalendarDTO(cal domain.BusinessCalendar) CalendarDTO {
	workDays := cal.WorkDays
	if workDays == nil {
		workDays = []int{}
	}
	return CalendarDTO{
		Timezone: cal.Timezone,
		WorkDays: workDays,
		Start:    cal.Start,
		End:      cal.End,
	}
}

func (c CalendarDTO) toDomain() domain.BusinessCalendar {
	return domain.BusinessCalendar{
		Timezone: c.Timezone,
		WorkDays: c.WorkDays,
		Start:    c.Start,
		End:      c.End,
	}
}

// SLATargetsDTO is the wire form of one priority's budgets.
type SLATargetsDTO struct {
	FirstResponseMs int64 `json:"firstResponseMs"`
	ResolutionMs    int64 `json:"resolutionMs"`
	OwnResolutionMs int64 `json:"ownResolutionMs"`
}

func toPolicyDTO(policy domain.SLAPolicy) map[string]SLATargetsDTO {
	response := make(map[string]SLATargetsDTO, len(policy))
	for priority, targets := range policy {
		response[string(priority)] = SLATargetsDTO{
			FirstResponseMs: targets.FirstResponse.Milliseconds(),
			ResolutionMs:    targets.Resolution.Milliseconds(),
			OwnResolutionMs: targets.OwnResolution.Milliseconds(),
		}
	}
	return response
}

// policyFromDTO expects budgets already checked by UpdatePolicyRequest.Validate.
func policyFromDTO(dto map[string]SLATargetsDTO) domain.SLAPolicy {
	policy := make(domain.SLAPolicy, len(dto))
	for priority, targets := range dto {
		policy[domain.TicketPriority(priority)] = domain.SLATargets{
			FirstResponse: time.Duration(targets.FirstResponseMs) * time.Millisecond,
			Resolution:    time.Duration(targets.ResolutionMs) * time.Millisecond,
			OwnResolution: time.Duration(targets.OwnResolutionMs) * time.Millisecond,
		}
	}
	return policy
}

// TenantSettingsDTO defines the JSON response for tenant settings.
type TenantSettingsDTO struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Calendar  CalendarDTO              `json:"calendar"`
	Policy    map[string]SLATargetsDTO `json:"slaPolicy"`
	CreatedAt string                   `json:"createdAt"`
	UpdatedAt string                   `json:"updatedAt"`
}

func toTenantSettingsDTO(tenant *domain.Tenant) TenantSettingsDTO {
	return TenantSettingsDTO{
		ID:        tenant.ID.String(),
		Name:      tenant.Name,
		Calendar:  toCalendarDTO(tenant.Calendar),
		Policy:    toPolicyDTO(tenant.Policy),
		CreatedAt: formatTime(tenant.CreatedAt),
		UpdatedAt: formatTime(tenant.UpdatedAt),
	}
}

// TargetStatusDTO is one target evaluated at a point in time.
type TargetStatusDTO struct {
	Name         string  `json:"name"`
	BudgetMs     int64   `json:"budgetMs"`
	Due          string  `json:"due"`
	EffectiveDue string  `json:"effectiveDue"`
	MetAt        *string `json:"metAt"`
	Breached     bool    `json:"breached"`
	RemainingMs  int64   `json:"remainingMs"`
}

// ClockStatusDTO is one clock evaluated at a point in time.
type ClockStatusDTO struct {
	Kind      string            `json:"kind"`
	State     string            `json:"state"`
	StartedAt *string           `json:"startedAt"`
	PausedAt  *string           `json:"pausedAt"`
	PausedMs  int64             `json:"pausedMs"`
	Breached  bool              `json:"breached"`
	Targets   []TargetStatusDTO `json:"targets"`
}

func toClockStatusDTO(status ports.ClockStatus) ClockStatusDTO {
	targets := make([]TargetStatusDTO, 0, len(status.Targets))
	for _, t := range status.Targets {
		targets = append(targets, TargetStatusDTO{
			Name:         string(t.Name),
			BudgetMs:     t.Budget.Milliseconds(),
			Due:          formatTime(t.Due),
			EffectiveDue: formatTime(t.EffectiveDue),
			MetAt:        formatTimePtr(t.MetAt),
			Breached:     t.Breached,
			RemainingMs:  t.Remaining.Milliseconds(),
		})
	}
	return ClockStatusDTO{
		Kind:      string(status.Kind),
		State:     string(status.State),
		StartedAt: formatTimePtr(status.StartedAt),
		PausedAt:  formatTimePtr(status.PausedAt),
		PausedMs:  status.PausedFor.Milliseconds(),
		Breached:  status.Breached,
		Targets:   targets,
	}
}

// TicketSLADTO defines the JSON response for a ticket's clocks.
type TicketSLADTO struct {
	TicketID    int64          `json:"ticketId"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	EvaluatedAt string         `json:"evaluatedAt"`
	Calendar    CalendarDTO    `json:"calendar"`
	SLA         ClockStatusDTO `json:"sla"`
	OLA         ClockStatusDTO `json:"ola"`
}

func toTicketSLADTO(view *ports.TicketSLA) TicketSLADTO {
	return TicketSLADTO{
		TicketID:    view.TicketID,
		Status:      string(view.Status),
		Priority:    string(view.Priority),
		EvaluatedAt: formatTime(view.Evaluated),
		Calendar:    toCalendarDTO(view.Calendar),
		SLA:         toClockStatusDTO(view.SLA),
		OLA:         toClockStatusDTO(view.OLA),
	}
}

// ComplianceDTO is the tally of one target across the report window.
type ComplianceDTO struct {
	Met      int64   `json:"met"`
	Breached int64   `json:"breached"`
	Pending  int64   `json:"pending"`
	Rate     float64 `json:"complianceRate"`
}

func toComplianceDTO(c domain.ComplianceCounts) ComplianceDTO {
	return ComplianceDTO{
		Met:      c.Met,
		Breached: c.Breached,
		Pending:  c.Pending,
		Rate:     c.Rate(),
	}
}

// PriorityComplianceDTO breaks the compliance tallies down by priority.
type PriorityComplianceDTO struct {
	Priority      string        `json:"priority"`
	SLAResponse   ComplianceDTO `json:"slaResponse"`
	SLAResolution ComplianceDTO `json:"slaResolution"`
	OLAResolution ComplianceDTO `json:"olaResolution"`
}

// ComplianceReportDTO defines the JSON response for the compliance report.
type ComplianceReportDTO struct {
	TenantID                 string                  `json:"tenantId"`
	From                     string                  `json:"from"`
	To                       string                  `json:"to"`
	StatusCounts             map[string]int64        `json:"statusCounts"`
	SLAResponse              ComplianceDTO           `json:"slaResponse"`
	SLAResolution            ComplianceDTO           `json:"slaResolution"`
	OLAResolution            ComplianceDTO           `json:"olaResolution"`
	ByPriority               []PriorityComplianceDTO `json:"byPriority"`
	MeanResolutionBusinessMs int64                   `json:"meanResolutionBusinessMs"`
}

func toComplianceReportDTO(report *domain.ComplianceReport) ComplianceReportDTO {
	counts := make(map[string]int64, len(report.StatusCounts))
	for _, sc := range report.StatusCounts {
		counts[string(sc.Status)] = sc.Count
	}

	byPriority := make([]PriorityComplianceDTO, 0, len(report.ByPriority))
	for _, pc := range report.ByPriority {
		byPriority = append(byPriority, PriorityComplianceDTO{
			Priority:      string(pc.Priority),
			SLAResponse:   toComplianceDTO(pc.SLAResponse),
			SLAResolution: toComplianceDTO(pc.SLAResolution),
			OLAResolution: toComplianceDTO(pc.OLAResolution),
		})
	}

	return ComplianceReportDTO{
		TenantID:                 report.TenantID.String(),
		From:                     formatTime(report.From),
		To:                       formatTime(report.To),
		StatusCounts:             counts,
		SLAResponse:              toComplianceDTO(report.SLAResponse),
		SLAResolution:            toComplianceDTO(report.SLAResolution),
		OLAResolution:            toComplianceDTO(report.OLAResolution),
		ByPriority:               byPriority,
		MeanResolutionBusinessMs: report.MeanResolutionBusinessTime.Milliseconds(),
	}
}

// UserDTO defines the JSON response for directory users.
type UserDTO struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	IsActive bool   `json:"isActive"`
}

func toUserDTO(user *domain.User) UserDTO {
	return UserDTO{
		ID:       user.ID.String(),
		FullName: user.FullName,
		Email:    user.Email,
		IsActive: user.IsActive,
	}
}

func toUserDTOs(users []*domain.User) []UserDTO {
	response := make([]UserDTO, 0, len(users))
	for _, user := range users {
		response = append(response, toUserDTO(user))
	}
	return response
}

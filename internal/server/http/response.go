package httpserver

import (
	"time"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/temporal"
)

// Response types for JSON serialization.

type createTicketResponse struct {
	TicketID     string    `json:"ticket_id"`
	WorkflowID   string    `json:"workflow_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Deduplicated bool      `json:"deduplicated,omitempty"`
}

type ticketResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	Summary        string    `json:"summary,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	RequiredSkills []string  `json:"required_skills"`
	AssigneeID     string    `json:"assignee_id,omitempty"`
	CreatedBy      string    `json:"created_by"`
	ErrorReason    string    `json:"error_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type listTicketsResponse struct {
	Tickets       []ticketResponse `json:"tickets"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	TotalCount    int              `json:"total_count"`
}

type triageProgressResponse struct {
	TicketID     string   `json:"ticket_id"`
	Stage        string   `json:"stage"`
	Status       string   `json:"status,omitempty"`
	UsedFallback bool     `json:"used_fallback"`
	AssigneeID   string   `json:"assignee_id,omitempty"`
	SkippedSteps []string `json:"skipped_steps,omitempty"`
	LastError    string   `json:"last_error,omitempty"`
	Done         bool     `json:"done"`
}

type startTriageResponse struct {
	TicketID     string `json:"ticket_id"`
	WorkflowID   string `json:"workflow_id"`
	RunID        string `json:"run_id,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Skills    []string  `json:"skills"`
	CreatedAt time.Time `json:"created_at"`
}

type createUserResponse struct {
	User              userResponse `json:"user"`
	WelcomeWorkflowID string       `json:"welcome_workflow_id,omitempty"`
}

// Converter functions

func domainTicketToResponse(t *domain.Ticket) ticketResponse {
	skills := t.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	resp := ticketResponse{
		ID:             t.ID.String(),
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		Summary:        t.Summary,
		Notes:          t.Notes,
		RequiredSkills: skills,
		CreatedBy:      t.CreatedBy.String(),
		ErrorReason:    t.ErrorReason,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.AssigneeID != nil {
		resp.AssigneeID = t.AssigneeID.String()
	}
	return resp
}

func progressToResponse(p *temporal.TriageProgress) triageProgressResponse {
	resp := triageProgressResponse{
		TicketID:     p.TicketID.String(),
		Stage:        p.Stage,
		Status:       string(p.Status),
		UsedFallback: p.UsedFallback,
		SkippedSteps: p.SkippedSteps,
		LastError:    p.LastError,
		Done:         p.Done,
	}
	if p.AssigneeID != nil {
		resp.AssigneeID = p.AssigneeID.String()
	}
	return resp
}

func domainUserToResponse(u *domain.User) userResponse {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      string(u.Role),
		Skills:    skills,
		CreatedAt: u.CreatedAt,
	}
}

package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// createUserRequest carries no role: signups are always plain users. Handlers
// are provisioned with triagectl.
type createUserRequest struct {
	Email  string   `json:"email" validate:"required,email,max=320"`
	Skills []string `json:"skills" validate:"max=50,dive,max=64"`
}

// createUser handles POST /users. New accounts get a welcome mail through the
// welcome workflow; a failed start is logged and does not fail the signup.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !s.validateRequest(w, &req) {
		return
	}

	user := &domain.User{
		ID:        uuid.New(),
		Email:     strings.ToLower(req.Email),
		Role:      domain.RoleUser,
		Skills:    normalizeSkills(req.Skills),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		writeDomainError(w, err)
		return
	}

	resp := createUserResponse{User: domainUserToResponse(user)}
	result, err := s.workflowClient.StartWelcome(ctx, user.ID)
	if err != nil {
		s.log(r).Warn().Err(err).
			Str("user_id", user.ID.String()).
			Msg("failed to start welcome workflow")
	} else {
		resp.WelcomeWorkflowID = result.WorkflowID
	}

	writeJSON(w, http.StatusCreated, resp)
}

// getUser handles GET /users/{userID}.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUID(w, chi.URLParam(r, "userID"), "user_id")
	if !ok {
		return
	}

	user, err := s.users.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainUserToResponse(user))
}

// normalizeSkills lower-cases and de-duplicates skills, keeping input order.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

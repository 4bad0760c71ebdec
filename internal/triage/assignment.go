package triage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// HandlerFinder is the read side of the user store that assignment needs.
type HandlerFinder interface {
	// FindModeratorsBySkills returns moderators having at least one of skills.
	FindModeratorsBySkills(ctx context.Context, skills []string) ([]*domain.User, error)
	// FindAdmin returns one admin, or an error wrapping domain.ErrNotFound when none exists.
	FindAdmin(ctx context.Context) (*domain.User, error)
}

// AssignmentPolicy picks the handler for a ticket.
type AssignmentPolicy struct {
	finder HandlerFinder
}

// NewAssignmentPolicy creates an AssignmentPolicy reading handlers from finder.
func NewAssignmentPolicy(finder HandlerFinder) *AssignmentPolicy {
	return &AssignmentPolicy{finder: finder}
}

// Assign returns a moderator sharing any of skills, else an admin, else nil.
// Among several qualifying moderators the oldest account wins, ties broken by id,
// so a fixed store state always yields the same handler.
// Store failures are returned as errors; finding nobody is not an error.
func (p *AssignmentPolicy) Assign(ctx context.Context, skills []string) (*domain.User, error) {
	skills = NormalizeSkills(skills)

	if len(skills) > 0 {
		moderators, err := p.finder.FindModeratorsBySkills(ctx, skills)
		if err != nil {
			return nil, fmt.Errorf("find moderators: %w", err)
		}
		if m := pickModerator(moderators, skills); m != nil {
			return m, nil
		}
	}

	admin, err := p.finder.FindAdmin(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return admin, nil
}

func pickModerator(candidates []*domain.User, skills []string) *domain.User {
	wanted := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		wanted[strings.ToLower(s)] = struct{}{}
	}

	qualified := make([]*domain.User, 0, len(candidates))
	for _, u := range candidates {
		if u == nil || u.Role != domain.RoleModerator {
			continue
		}
		if sharesSkill(u.Skills, wanted) {
			qualified = append(qualified, u)
		}
	}
	if len(qualified) == 0 {
		return nil
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		if !qualified[i].CreatedAt.Equal(qualified[j].CreatedAt) {
			return qualified[i].CreatedAt.Before(qualified[j].CreatedAt)
		}
		return qualified[i].ID.String() < qualified[j].ID.String()
	})
	return qualified[0]
}

func sharesSkill(have []string, wanted map[string]struct{}) bool {
	for _, s := range have {
		if _, ok := wanted[strings.ToLower(strings.TrimSpace(s))]; ok {
			return true
		}
	}
	return false
}

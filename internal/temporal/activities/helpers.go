package activities

import (
	"errors"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

func asNotFound(err error) (*domain.NotFoundError, bool) {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

package auth

import (
	"context"
	"errors"

	"github.com/stephnangue/gatehouse/logger"
	"github.com/stephnangue/gatehouse/logical"
	"github.com/stephnangue/gatehouse/principal"
	"github.com/stephnangue/gatehouse/role"
)

// knownRoles are the role names an administrator may assign.
var knownRoles = []string{role.Subscriber, role.Producer, role.Admin}

// ListPrincipals returns every principal.
func (s *Service) ListPrincipals(ctx context.Context) ([]PrincipalSummary, error) {
	principals, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PrincipalSummary, 0, len(principals))
	for _, p := range principals {
		out = append(out, PrincipalSummary{
			ID:    p.ID,
			Name:  p.Name,
			Email: p.Email,
			Roles: p.Roles,
		})
	}
	return out, nil
}

// GetPrincipal returns one principal by id.
func (s *Service) GetPrincipal(ctx context.Context, id string) (*PrincipalSummary, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return nil, logical.ErrNotFound("principal not found")
		}
		return nil, err
	}
	return &PrincipalSummary{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Roles: p.Roles,
	}, nil
}

// UpdateRoles replaces a principal's role set. Role names are
// normalized to the uppercase set form and must all be known.
func (s *Service) UpdateRoles(ctx context.Context, id string, roles []string) (int, error) {
	normalized := role.Normalize(roles)
	if normalized == nil {
		return 0, logical.ErrBadRequest("roles are required")
	}
	for _, r := range normalized {
		if !role.Contains(knownRoles, r) {
			return 0, logical.ErrBadRequestf("unknown role: %s", r)
		}
	}

	count, err := s.store.UpdateRoles(ctx, id, normalized)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return 0, logical.ErrNotFound("principal not found")
		}
		return 0, err
	}

	s.log.Info("roles updated", logger.String("principal_id", id),
		logger.Any("roles", normalized))
	return count, nil
}

// DeletePrincipal removes a principal and its identity links. Deleting
// also removes the signing secret, which instantly invalidates every
// outstanding token for that principal.
func (s *Service) DeletePrincipal(ctx context.Context, id string) (int, error) {
	count, err := s.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("principal deleted", logger.String("principal_id", id))
	}
	return count, nil
}

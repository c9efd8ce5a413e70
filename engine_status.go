package eduAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/eduAuth/validation"
)

// SetActive toggles is_active on a principal. Deleted principals cannot be
// reactivated.
func (e *Engine) SetActive(ctx context.Context, role Role, id string, active bool) (*Principal, error) {
	if err := e.ready(role); err != nil {
		return nil, err
	}

	p, err := e.findByID(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, ErrAccountDeleted
	}

	updated := p.Clone()
	updated.IsActive = active
	updated.UpdatedAt = e.now().UTC()
	if err := e.directory.Save(ctx, updated); err != nil {
		return nil, e.internal(ctx, "directory.save", err)
	}

	e.metricInc(MetricAccountStatusChanged)
	e.emitAudit(ctx, auditEventAccountStatusChange, true, role, p.ID, p.Email, nil, func() map[string]string {
		return map[string]string{"is_active": boolString(active)}
	})
	return updated, nil
}

// SoftDelete marks a principal deleted. Records are never removed; a deleted
// principal keeps its email and mobile, but no longer blocks new
// registrations with them.
func (e *Engine) SoftDelete(ctx context.Context, role Role, id string) error {
	if err := e.ready(role); err != nil {
		return err
	}

	p, err := e.findByID(ctx, role, id)
	if err != nil {
		return err
	}
	if p.IsDeleted {
		return ErrAccountDeleted
	}

	updated := p.Clone()
	updated.IsDeleted = true
	updated.UpdatedAt = e.now().UTC()
	if err := e.directory.Save(ctx, updated); err != nil {
		return e.internal(ctx, "directory.save", err)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, role, p.ID, p.Email, nil, nil)
	return nil
}

// SeedAdmin creates the bootstrap admin unless an admin with that email
// already exists. The bool reports whether a principal was created.
func (e *Engine) SeedAdmin(ctx context.Context, req SeedRequest) (*Principal, bool, error) {
	if err := e.ready(RoleAdmin); err != nil {
		return nil, false, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if err := validation.Missing(req); err != nil {
		return nil, false, validationError(err)
	}

	live, err := e.directory.Exists(ctx, RoleAdmin, FieldEmail, req.Email)
	if err != nil {
		return nil, false, e.internal(ctx, "directory.exists", err)
	}
	if live {
		existing, err := e.directory.FindByEmail(ctx, RoleAdmin, req.Email)
		if err != nil {
			return nil, false, e.internal(ctx, "directory.find_by_email", err)
		}
		return existing, false, nil
	}

	created, err := e.Register(ctx, RoleAdmin, RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
	})
	if err != nil {
		return nil, false, err
	}

	e.emitAudit(ctx, auditEventAdminSeeded, true, RoleAdmin, created.ID, created.Email, nil, nil)
	return created, true, nil
}

func (e *Engine) findByID(ctx context.Context, role Role, id string) (*Principal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, notFoundFor(role)
	}
	p, err := e.directory.FindByID(ctx, role, id)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, notFoundFor(role)
		}
		return nil, e.internal(ctx, "directory.find_by_id", err)
	}
	return p, nil
}

package eduAuth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/eduAuth/internal/limiters"
	"github.com/MrEthical07/eduAuth/validation"
)

// Register creates an active principal for role. Email and mobile must be
// unused by every non-deleted principal of that role; both lookups run
// concurrently and the email clash wins when both fields are taken.
//
// The returned principal carries the stored hash; transports should reply
// with Project(p).
func (e *Engine) Register(ctx context.Context, role Role, req RegisterRequest) (*Principal, error) {
	if err := e.ready(role); err != nil {
		return nil, err
	}

	req = trimRegisterRequest(req)
	if err := validation.Missing(req); err != nil {
		return nil, e.registerFailed(ctx, role, req.Email, validationError(err))
	}
	if !validation.IsValidEmail(req.Email) {
		return nil, e.registerFailed(ctx, role, req.Email, ErrInvalidEmail)
	}
	if !validation.IsValidMobileNumber(req.Mobile) {
		return nil, e.registerFailed(ctx, role, req.Email, ErrInvalidMobile)
	}

	if err := e.registrationLimiter.Enforce(ctx, string(role), req.Email, clientIPFromContext(ctx)); err != nil {
		err = e.limited(ctx, "limiters.registration", err, limiters.ErrRegistrationRateLimited)
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricRegisterRateLimited)
			e.emitRateLimit(ctx, "register", role, req.Email)
		}
		return nil, err
	}

	emailTaken, mobileTaken, err := e.uniqueness(ctx, role, req.Email, req.Mobile)
	if err != nil {
		return nil, e.internal(ctx, "directory.exists", err)
	}
	if emailTaken {
		e.metricInc(MetricRegisterDuplicate)
		return nil, e.registerFailed(ctx, role, req.Email, ErrEmailExists)
	}
	if mobileTaken {
		e.metricInc(MetricRegisterDuplicate)
		return nil, e.registerFailed(ctx, role, req.Email, ErrMobileExists)
	}

	hash, err := e.hashPassword(ctx, req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, e.registerFailed(ctx, role, req.Email, err)
		}
		return nil, err
	}

	now := e.now().UTC()
	p := &Principal{
		Role:         role,
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role == RoleAdmin {
		p.Admin = &AdminProfile{}
	} else {
		p.User = &UserProfile{
			Gender:      req.Gender,
			DateOfBirth: req.DateOfBirth,
			Address:     req.Address,
			City:        req.City,
			State:       req.State,
			Pincode:     req.Pincode,
			SchoolName:  req.SchoolName,
			ClassName:   req.ClassName,
		}
	}

	created, err := e.directory.Create(ctx, p)
	if err != nil {
		if errors.Is(err, ErrDuplicatePrincipal) {
			e.metricInc(MetricRegisterDuplicate)
			return nil, e.registerFailed(ctx, role, req.Email, e.duplicateCause(ctx, role, req.Email, req.Mobile))
		}
		return nil, e.internal(ctx, "directory.create", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, role, created.ID, created.Email, nil, nil)
	return created, nil
}

func (e *Engine) uniqueness(ctx context.Context, role Role, email, mobile string) (bool, bool, error) {
	var emailTaken, mobileTaken bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		taken, err := e.directory.Exists(gctx, role, FieldEmail, email)
		emailTaken = taken
		return err
	})
	g.Go(func() error {
		taken, err := e.directory.Exists(gctx, role, FieldMobile, mobile)
		mobileTaken = taken
		return err
	})
	if err := g.Wait(); err != nil {
		return false, false, err
	}
	return emailTaken, mobileTaken, nil
}

// duplicateCause picks the message for a unique clash reported by Create.
// The email clash wins, as in the pre-checks; if neither field is visible any
// more the email message is used.
func (e *Engine) duplicateCause(ctx context.Context, role Role, email, mobile string) error {
	emailTaken, mobileTaken, err := e.uniqueness(ctx, role, email, mobile)
	if err == nil && mobileTaken && !emailTaken {
		return ErrMobileExists
	}
	return ErrEmailExists
}

func (e *Engine) registerFailed(ctx context.Context, role Role, email string, cause error) error {
	e.emitAudit(ctx, auditEventRegisterFailure, false, role, "", email, cause, nil)
	return cause
}

func trimRegisterRequest(req RegisterRequest) RegisterRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if strings.TrimSpace(req.Password) == "" {
		req.Password = ""
	}
	req.Gender = strings.TrimSpace(req.Gender)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	req.Address = strings.TrimSpace(req.Address)
	req.City = strings.TrimSpace(req.City)
	req.State = strings.TrimSpace(req.State)
	req.Pincode = strings.TrimSpace(req.Pincode)
	req.SchoolName = strings.TrimSpace(req.SchoolName)
	req.ClassName = strings.TrimSpace(req.ClassName)
	return req
}

// Project is the public view of p: no password hash, no otp field, and the
// id published under "admin_id" or "user_id".
func Project(p *Principal) Details {
	if p == nil {
		return nil
	}
	d := Details{
		p.Role.IDClaim(): p.ID,
		"name":           p.Name,
		"email":          p.Email,
		"mobile":         p.Mobile,
		"is_active":      p.IsActive,
		"is_deleted":     p.IsDeleted,
		"created_at":     p.CreatedAt,
		"updated_at":     p.UpdatedAt,
	}
	if p.Admin != nil {
		d["profile_picture"] = p.Admin.ProfilePicture
	}
	if p.User != nil {
		d["gender"] = p.User.Gender
		d["date_of_birth"] = p.User.DateOfBirth
		d["address"] = p.User.Address
		d["city"] = p.User.City
		d["state"] = p.User.State
		d["pincode"] = p.User.Pincode
		d["school_name"] = p.User.SchoolName
		d["class_name"] = p.User.ClassName
	}
	return d
}

// GetDetails returns the projection of an authenticated principal.
func (e *Engine) GetDetails(p *Principal) (Details, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	return Project(p), nil
}

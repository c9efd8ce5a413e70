package eduAuth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/eduAuth/validation"
)

// UpdateProfileDetails edits an admin's name and mobile and optionally
// replaces the profile picture. The new file is stored first; the previous
// one is then removed best-effort, and a removal failure is only logged.
func (e *Engine) UpdateProfileDetails(ctx context.Context, p *Principal, upd ProfileUpdate) (*Principal, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	if err := e.ready(p.Role); err != nil {
		return nil, err
	}
	if p.Role != RoleAdmin {
		return nil, ErrRoleNotAllowed
	}

	upd.Name = strings.TrimSpace(upd.Name)
	upd.Mobile = strings.TrimSpace(upd.Mobile)
	if err := validation.Missing(upd); err != nil {
		return nil, validationError(err)
	}
	if !validation.IsValidMobileNumber(upd.Mobile) {
		return nil, ErrInvalidMobile
	}

	if upd.Mobile != p.Mobile {
		taken, err := e.directory.Exists(ctx, p.Role, FieldMobile, upd.Mobile)
		if err != nil {
			return nil, e.internal(ctx, "directory.exists", err)
		}
		if taken {
			return nil, ErrMobileExists
		}
	}

	updated := p.Clone()
	if updated.Admin == nil {
		updated.Admin = &AdminProfile{}
	}
	updated.Name = upd.Name
	updated.Mobile = upd.Mobile
	updated.UpdatedAt = e.now().UTC()

	var newPath string
	if upd.Picture != nil && upd.Picture.Content != nil {
		if e.files == nil {
			return nil, e.internal(ctx, "files.save", errors.New("no file store configured"))
		}
		path, err := e.files.Save(ctx, upd.Picture.Filename, upd.Picture.Content)
		if err != nil {
			return nil, e.internal(ctx, "files.save", err)
		}
		if old := updated.Admin.ProfilePicture; old != "" && old != path {
			if err := e.files.Remove(ctx, old); err != nil {
				e.Logger().Warn("previous profile picture not removed",
					zap.String("principal_id", p.ID),
					zap.String("path", old),
					zap.Error(err),
				)
			}
		}
		updated.Admin.ProfilePicture = path
		newPath = path
	}

	if err := e.directory.Save(ctx, updated); err != nil {
		if newPath != "" {
			if rerr := e.files.Remove(ctx, newPath); rerr != nil {
				e.Logger().Warn("new profile picture not removed after failed save",
					zap.String("principal_id", p.ID),
					zap.String("path", newPath),
					zap.Error(rerr),
				)
			}
		}
		return nil, e.internal(ctx, "directory.save", err)
	}

	e.metricInc(MetricProfileUpdated)
	e.emitAudit(ctx, auditEventProfileUpdate, true, p.Role, p.ID, p.Email, nil, func() map[string]string {
		return map[string]string{"picture_changed": boolString(upd.Picture != nil)}
	})
	return updated, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

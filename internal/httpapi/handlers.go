package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	eduAuth "github.com/MrEthical07/eduAuth"
	authmw "github.com/MrEthical07/eduAuth/middleware"
	"github.com/MrEthical07/eduAuth/response"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 8 << 20

	profilePictureField = "profile_picture"
)

type handler struct {
	engine *eduAuth.Engine
	logger *zap.Logger
}

var invalidBody = response.Fail("Invalid request body", http.StatusBadRequest)

// decode reads a JSON body into v. An empty body leaves v zero so that field
// validation reports what is missing.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	response.Write(w, invalidBody)
	return false
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	response.Write(w, response.FromError(err, h.logger))
}

func (h *handler) login(role eduAuth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eduAuth.LoginRequest
		if !decode(w, r, &req) {
			return
		}
		if err := h.engine.Login(r.Context(), role, req); err != nil {
			h.fail(w, err)
			return
		}
		response.Write(w, response.Message(eduAuth.MessageOTPSent))
	}
}

func (h *handler) verifyOTP(role eduAuth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eduAuth.VerifyOTPRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := h.engine.VerifyOTP(r.Context(), role, req)
		if err != nil {
			h.fail(w, err)
			return
		}
		response.Write(w, response.OK(response.Payload{
			"message":      eduAuth.MessageOTPVerified,
			"token":        res.Token,
			role.DataKey(): res.Details,
		}))
	}
}

func (h *handler) register(role eduAuth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eduAuth.RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := h.engine.Register(r.Context(), role, req)
		if err != nil {
			h.fail(w, err)
			return
		}
		response.Write(w, response.OK(response.Payload{
			"message":      eduAuth.MessageRegistered,
			role.DataKey(): eduAuth.Project(p),
		}))
	}
}

func (h *handler) forgetPassword(role eduAuth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eduAuth.ForgetPasswordRequest
		if !decode(w, r, &req) {
			return
		}
		if err := h.engine.ForgetPassword(r.Context(), role, req); err != nil {
			h.fail(w, err)
			return
		}
		response.Write(w, response.Message(eduAuth.MessageOTPSent))
	}
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	p, _ := authmw.PrincipalFromContext(r.Context())
	var req eduAuth.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.ResetPassword(r.Context(), p, req); err != nil {
		h.fail(w, err)
		return
	}
	response.Write(w, response.Message(eduAuth.MessagePasswordReset))
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := authmw.PrincipalFromContext(r.Context())
	var req eduAuth.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.ChangePassword(r.Context(), p, req); err != nil {
		h.fail(w, err)
		return
	}
	response.Write(w, response.Message(eduAuth.MessagePasswordChanged))
}

func (h *handler) details(w http.ResponseWriter, r *http.Request) {
	p, _ := authmw.PrincipalFromContext(r.Context())
	d, err := h.engine.GetDetails(p)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Write(w, response.OK(response.Payload{p.Role.DataKey(): d}))
}

// updateProfile takes a multipart form with name, mobile and an optional
// profile_picture file. A plain urlencoded form is accepted without a file.
func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := authmw.PrincipalFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		response.Write(w, invalidBody)
		return
	}

	upd := eduAuth.ProfileUpdate{
		Name:   r.FormValue("name"),
		Mobile: r.FormValue("mobile"),
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile(profilePictureField)
	switch {
	case err == nil:
		defer file.Close()
		upd.Picture = &eduAuth.Upload{Filename: header.Filename, Content: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		response.Write(w, invalidBody)
		return
	}

	updated, err := h.engine.UpdateProfileDetails(r.Context(), p, upd)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Write(w, response.OK(response.Payload{
		"message":                   eduAuth.MessageProfileUpdated,
		eduAuth.RoleAdmin.DataKey(): eduAuth.Project(updated),
	}))
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		response.Write(w, response.Fail("Missing required fields: is_active", http.StatusBadRequest))
		return
	}

	p, err := h.engine.SetActive(r.Context(), eduAuth.RoleUser, chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Write(w, response.OK(response.Payload{
		"message":                  eduAuth.MessageStatusUpdated,
		eduAuth.RoleUser.DataKey(): eduAuth.Project(p),
	}))
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SoftDelete(r.Context(), eduAuth.RoleUser, chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	response.Write(w, response.Message(eduAuth.MessageDeleted))
}

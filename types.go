package eduAuth

import (
	"context"
	"io"
	"strings"
	"time"
)

// Role selects which principal collection an operation runs against.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole accepts "admin" or "user", case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// IDClaim is the token claim and public projection key carrying the
// principal id: "admin_id" or "user_id".
func (r Role) IDClaim() string {
	if r == RoleAdmin {
		return "admin_id"
	}
	return "user_id"
}

// DataKey names the principal payload in OTP verification replies.
func (r Role) DataKey() string {
	if r == RoleAdmin {
		return "adminData"
	}
	return "userData"
}

// Label is the human name used in messages ("Admin not found").
func (r Role) Label() string {
	if r == RoleAdmin {
		return "Admin"
	}
	return "User"
}

// TokenTier separates fully authenticated sessions from the reset-only temp
// tier. A token of one tier is never accepted where the other is required.
type TokenTier uint8

const (
	TierSession TokenTier = iota + 1
	TierTemp
)

func (t TokenTier) String() string {
	switch t {
	case TierSession:
		return "session"
	case TierTemp:
		return "temp"
	default:
		return "unknown"
	}
}

// AdminProfile holds fields only admins carry.
type AdminProfile struct {
	ProfilePicture string
}

// UserProfile holds the learner fields only users carry.
type UserProfile struct {
	Gender      string
	DateOfBirth string
	Address     string
	City        string
	State       string
	Pincode     string
	SchoolName  string
	ClassName   string
}

// Principal is an admin or user account. Exactly one of Admin and User is
// set, matching Role.
//
// OTP is kept for storage compatibility only. Verification never reads it.
type Principal struct {
	ID           string
	Role         Role
	Name         string
	Email        string
	Mobile       string
	PasswordHash string
	OTP          string
	IsActive     bool
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Admin *AdminProfile
	User  *UserProfile
}

// Usable is true for active, non-deleted principals.
func (p *Principal) Usable() bool {
	return p != nil && p.IsActive && !p.IsDeleted
}

// Clone returns a deep copy.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	out := *p
	if p.Admin != nil {
		a := *p.Admin
		out.Admin = &a
	}
	if p.User != nil {
		u := *p.User
		out.User = &u
	}
	return &out
}

// LookupField names a unique principal attribute.
type LookupField string

const (
	FieldEmail  LookupField = "email"
	FieldMobile LookupField = "mobile"
)

// Directory is the principal store. Implementations live under directory/.
//
// Find* return ErrPrincipalNotFound when nothing matches. Email matching is
// case-insensitive. Deleted principals are returned (a non-deleted match is
// preferred) so callers can report the deleted state. Exists only counts
// non-deleted principals.
type Directory interface {
	FindByEmail(ctx context.Context, role Role, email string) (*Principal, error)
	FindByMobile(ctx context.Context, role Role, mobile string) (*Principal, error)
	FindByID(ctx context.Context, role Role, id string) (*Principal, error)
	Exists(ctx context.Context, role Role, field LookupField, value string) (bool, error)
	Create(ctx context.Context, p *Principal) (*Principal, error)
	Save(ctx context.Context, p *Principal) error
}

// FileStore keeps uploaded profile pictures. Save returns the stored path
// that is persisted on the principal; Remove takes that same path.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
}

// Upload is a file received with a profile update.
type Upload struct {
	Filename string
	Content  io.Reader
}

// OTP verification purposes.
const (
	OTPTypeLogin          = "login"
	OTPTypeForgotPassword = "forgotPassword"
)

// Acknowledgement and success messages returned to clients.
const (
	MessageOTPSent         = "OTP Sent Successfully"
	MessageOTPVerified     = "OTP verification successful"
	MessageRegistered      = "Registration successful"
	MessagePasswordReset   = "Password reset successful"
	MessagePasswordChanged = "Password changed successfully"
	MessageProfileUpdated  = "Profile updated successfully"
	MessageStatusUpdated   = "Status updated successfully"
	MessageDeleted         = "Deleted successfully"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
	Type  string `json:"type"`
}

// OTPResult is what a successful VerifyOTP hands back. Details is the public
// projection of Principal.
type OTPResult struct {
	Token     string
	Tier      TokenTier
	Principal *Principal
	Details   Details
}

// RegisterRequest carries sign-up fields. The learner fields are ignored for
// admins.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Mobile   string `json:"mobile" validate:"required"`

	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	SchoolName  string `json:"school_name"`
	ClassName   string `json:"class_name"`
}

type ForgetPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// ProfileUpdate is an admin profile edit. Picture is optional.
type ProfileUpdate struct {
	Name    string  `json:"name" validate:"required"`
	Mobile  string  `json:"mobile" validate:"required"`
	Picture *Upload `json:"-"`
}

// SeedRequest describes the bootstrap admin created at start-up.
type SeedRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required"`
	Mobile   string `validate:"required"`
}

// Details is the public projection of a principal: no password hash, no otp
// field, and the id under Role.IDClaim().
type Details map[string]any

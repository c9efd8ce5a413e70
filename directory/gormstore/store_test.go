package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	eduAuth "github.com/MrEthical07/eduAuth"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newPrincipal(role eduAuth.Role, email, mobile string) *eduAuth.Principal {
	now := time.Now().UTC()
	p := &eduAuth.Principal{
		Role:         role,
		Name:         "Test",
		Email:        email,
		Mobile:       mobile,
		PasswordHash: "$2a$10$hash",
		OTP:          "inert",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role == eduAuth.RoleAdmin {
		p.Admin = &eduAuth.AdminProfile{}
	} else {
		p.User = &eduAuth.UserProfile{SchoolName: "Springfield", ClassName: "8"}
	}
	return p
}

func TestCreateAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, newPrincipal(eduAuth.RoleUser, "Asha@X.com", "9876543210"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an id")
	}

	found, err := s.FindByEmail(ctx, eduAuth.RoleUser, "ASHA@x.com")
	if err != nil || found.ID != created.ID {
		t.Fatalf("expected case-insensitive match, got %v %v", found, err)
	}
	if found.Email != "Asha@X.com" {
		t.Fatalf("expected original email casing to be kept, got %q", found.Email)
	}
	if found.User == nil || found.User.SchoolName != "Springfield" {
		t.Fatalf("expected learner fields, got %+v", found.User)
	}
	if found.OTP != "inert" {
		t.Fatal("expected otp field to be stored")
	}

	if _, err := s.FindByMobile(ctx, eduAuth.RoleUser, "9876543210"); err != nil {
		t.Fatalf("find by mobile: %v", err)
	}
	if _, err := s.FindByID(ctx, eduAuth.RoleAdmin, created.ID); !errors.Is(err, eduAuth.ErrPrincipalNotFound) {
		t.Fatalf("expected role scoping, got %v", err)
	}
}

func TestUniqueOnlyAmongLivePrincipals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, newPrincipal(eduAuth.RoleAdmin, "a@x.com", "9876543210"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, newPrincipal(eduAuth.RoleAdmin, "A@X.com", "9876543211")); !errors.Is(err, eduAuth.ErrDuplicatePrincipal) {
		t.Fatalf("expected email duplicate, got %v", err)
	}
	if _, err := s.Create(ctx, newPrincipal(eduAuth.RoleAdmin, "b@x.com", "9876543210")); !errors.Is(err, eduAuth.ErrDuplicatePrincipal) {
		t.Fatalf("expected mobile duplicate, got %v", err)
	}
	if _, err := s.Create(ctx, newPrincipal(eduAuth.RoleUser, "a@x.com", "9876543210")); err != nil {
		t.Fatalf("expected roles not to clash, got %v", err)
	}

	first.IsDeleted = true
	first.UpdatedAt = time.Now().UTC()
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if taken, err := s.Exists(ctx, eduAuth.RoleAdmin, eduAuth.FieldEmail, "a@x.com"); err != nil || taken {
		t.Fatalf("expected deleted row to be ignored, got %v %v", taken, err)
	}

	second, err := s.Create(ctx, newPrincipal(eduAuth.RoleAdmin, "a@x.com", "9876543210"))
	if err != nil {
		t.Fatalf("expected re-registration after delete, got %v", err)
	}
	found, err := s.FindByEmail(ctx, eduAuth.RoleAdmin, "a@x.com")
	if err != nil || found.ID != second.ID {
		t.Fatalf("expected the live row to win, got %v %v", found, err)
	}
}

func TestCreateKeepsInactive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := newPrincipal(eduAuth.RoleUser, "off@x.com", "9876543212")
	p.IsActive = false
	created, err := s.Create(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.FindByID(ctx, eduAuth.RoleUser, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.IsActive {
		t.Fatal("expected is_active false to survive create")
	}
}

func TestSaveWritesZeroValues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, newPrincipal(eduAuth.RoleAdmin, "a@x.com", "9876543210"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p.IsActive = false
	p.Admin.ProfilePicture = "uploads/a.png"
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.FindByID(ctx, eduAuth.RoleAdmin, p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.IsActive {
		t.Fatal("expected is_active false to be persisted")
	}
	if got.Admin.ProfilePicture != "uploads/a.png" {
		t.Fatalf("expected picture path, got %q", got.Admin.ProfilePicture)
	}

	ghost := newPrincipal(eduAuth.RoleAdmin, "g@x.com", "9876543219")
	ghost.ID = "missing"
	if err := s.Save(ctx, ghost); !errors.Is(err, eduAuth.ErrPrincipalNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEngineOnSQLite(t *testing.T) {
	s := openTestStore(t)
	cfg := eduAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("gormstore-test-secret-gormstore!")
	cfg.OTP.Secret = "JBSWY3DPEHPK3PXP"
	cfg.Password.BcryptCost = 4

	engine, err := eduAuth.New().WithConfig(cfg).WithDirectory(s).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	if _, err := engine.Register(ctx, eduAuth.RoleUser, eduAuth.RegisterRequest{
		Name: "Asha", Email: "asha@x.com", Password: "secret", Mobile: "9876543210",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := engine.Register(ctx, eduAuth.RoleUser, eduAuth.RegisterRequest{
		Name: "Other", Email: "other@x.com", Password: "secret", Mobile: "9876543210",
	}); !errors.Is(err, eduAuth.ErrMobileExists) {
		t.Fatalf("expected mobile clash, got %v", err)
	}
	if err := engine.Login(ctx, eduAuth.RoleUser, eduAuth.LoginRequest{Email: "ASHA@x.com", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

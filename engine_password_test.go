package eduAuth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestChangePasswordRejectsReuse(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleUser, "u@x.com", "old-pass", "9000000030")
	engine := newTestEngine(t, dir)
	ctx := context.Background()

	err := engine.ChangePassword(ctx, p, ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "old-pass"})
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
	if dir.saveCalls != 0 {
		t.Fatalf("expected nothing saved, got %d saves", dir.saveCalls)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleUser, "u@x.com", "old-pass", "9000000031")
	engine := newTestEngine(t, dir)

	err := engine.ChangePassword(context.Background(), p, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "nope"})
	if !errors.Is(err, ErrInvalidCurrentPassword) {
		t.Fatalf("expected wrong current password to be reported before reuse, got %v", err)
	}
	if err.Error() != "invalid current password" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestChangePasswordUpdatesHash(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleAdmin, "a@x.com", "old-pass", "9000000032")
	engine := newTestEngine(t, dir)
	ctx := context.Background()

	if err := engine.ChangePassword(ctx, p, ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "new-pass"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if err := engine.Login(ctx, RoleAdmin, LoginRequest{Email: "a@x.com", Password: "old-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to stop working, got %v", err)
	}
	if err := engine.Login(ctx, RoleAdmin, LoginRequest{Email: "a@x.com", Password: "new-pass"}); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
	if dir.get(p.ID).PasswordHash != p.PasswordHash {
		t.Fatal("expected caller principal to carry the stored hash")
	}
}

func TestChangePasswordMissingFields(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleUser, "u@x.com", "old-pass", "9000000033")
	engine := newTestEngine(t, dir)

	err := engine.ChangePassword(context.Background(), p, ChangePasswordRequest{NewPassword: "  "})
	if err == nil || err.Error() != "Missing required fields: currentPassword, newPassword" {
		t.Fatalf("expected missing fields message, got %v", err)
	}
}

func TestResetPasswordAllowsSamePassword(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleUser, "u@x.com", "same-pass", "9000000034")
	engine := newTestEngine(t, dir)
	ctx := context.Background()
	before := p.PasswordHash

	if err := engine.ResetPassword(ctx, p, ResetPasswordRequest{NewPassword: "same-pass"}); err != nil {
		t.Fatalf("expected reset to accept the current password, got %v", err)
	}
	if p.PasswordHash == before {
		t.Fatal("expected a fresh hash to be stored")
	}
	if err := engine.Login(ctx, RoleUser, LoginRequest{Email: "u@x.com", Password: "same-pass"}); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestResetPasswordRequiresPrincipalAndPassword(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleUser, "u@x.com", "pass", "9000000035")
	engine := newTestEngine(t, dir)

	if err := engine.ResetPassword(context.Background(), nil, ResetPasswordRequest{NewPassword: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	err := engine.ResetPassword(context.Background(), p, ResetPasswordRequest{})
	if err == nil || err.Error() != "Missing required fields: newPassword" {
		t.Fatalf("expected missing newPassword, got %v", err)
	}
}

func TestResetFlowEndToEnd(t *testing.T) {
	dir := newMockDirectory()
	seedPrincipal(t, dir, RoleUser, "u@x.com", "forgotten", "9000000036")
	engine := newTestEngine(t, dir)
	ctx := context.Background()

	if err := engine.ForgetPassword(ctx, RoleUser, ForgetPasswordRequest{Email: "U@x.com"}); err != nil {
		t.Fatalf("forget password: %v", err)
	}
	res, err := engine.VerifyOTP(ctx, RoleUser, VerifyOTPRequest{Email: "u@x.com", OTP: currentOTP(t), Type: OTPTypeForgotPassword})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	p, err := engine.AuthenticateTemp(ctx, RoleUser, res.Token)
	if err != nil {
		t.Fatalf("authenticate temp: %v", err)
	}
	if err := engine.ResetPassword(ctx, p, ResetPasswordRequest{NewPassword: "remembered"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := engine.Login(ctx, RoleUser, LoginRequest{Email: "u@x.com", Password: "remembered"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestForgetPasswordAccountStates(t *testing.T) {
	dir := newMockDirectory()
	inactive := seedPrincipal(t, dir, RoleAdmin, "inactive@x.com", "pass", "9000000037")
	inactive.IsActive = false
	_ = dir.Save(context.Background(), inactive)
	engine := newTestEngine(t, dir)
	ctx := context.Background()

	if err := engine.ForgetPassword(ctx, RoleAdmin, ForgetPasswordRequest{Email: "ghost@x.com"}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := engine.ForgetPassword(ctx, RoleAdmin, ForgetPasswordRequest{Email: "inactive@x.com"}); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected inactive, got %v", err)
	}
	if err := engine.ForgetPassword(ctx, RoleAdmin, ForgetPasswordRequest{}); err == nil || err.Error() != "Missing required fields: email" {
		t.Fatalf("expected missing email, got %v", err)
	}
}

func TestForgetPasswordThrottle(t *testing.T) {
	dir := newMockDirectory()
	seedPrincipal(t, dir, RoleUser, "u@x.com", "pass", "9000000038")
	rdb, mr := newTestRedis(t)

	cfg := testConfig()
	cfg.Security.EnableForgotPasswordThrottle = true
	cfg.Security.MaxForgotPasswordRequests = 2
	cfg.Security.ForgotPasswordWindow = time.Minute
	engine := newTestEngine(t, dir, func(b *Builder) { b.WithConfig(cfg).WithRedis(rdb) })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := engine.ForgetPassword(ctx, RoleUser, ForgetPasswordRequest{Email: "u@x.com"}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := engine.ForgetPassword(ctx, RoleUser, ForgetPasswordRequest{Email: "u@x.com"}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := engine.ForgetPassword(ctx, RoleUser, ForgetPasswordRequest{Email: "u@x.com"}); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestPasswordTooLongIsClientError(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleUser, "u@x.com", "old-pass", "9000000035")
	engine := newTestEngine(t, dir)
	ctx := context.Background()
	long := strings.Repeat("a", 80)

	if err := engine.ResetPassword(ctx, p, ResetPasswordRequest{NewPassword: long}); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected reset to reject long password, got %v", err)
	}
	if err := engine.ChangePassword(ctx, p, ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: long}); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected change to reject long password, got %v", err)
	}
	if dir.saveCalls != 0 {
		t.Fatalf("expected nothing saved, got %d saves", dir.saveCalls)
	}
	if err := engine.Login(ctx, RoleUser, LoginRequest{Email: "u@x.com", Password: "old-pass"}); err != nil {
		t.Fatalf("expected old password to keep working, got %v", err)
	}
}

package eduAuth

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func auditConfig() Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	return cfg
}

func TestAuditEventsCarryRequestContext(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleAdmin, "a@x.com", "secret", "9000000060")
	sink := NewChannelSink(16)
	engine := newTestEngine(t, dir, func(b *Builder) { b.WithConfig(auditConfig()).WithAuditSink(sink) })

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserAgent(ctx, "curl/8")

	if err := engine.Login(ctx, RoleAdmin, LoginRequest{Email: "a@x.com", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	select {
	case ev := <-sink.Events():
		if ev.EventType != "login_otp_sent" || !ev.Success {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.PrincipalID != p.ID || ev.Role != "admin" {
			t.Fatalf("expected principal and role, got %+v", ev)
		}
		if ev.IP != "203.0.113.7" || ev.RequestID != "req-1" || ev.Metadata["user_agent"] != "curl/8" {
			t.Fatalf("expected request context, got %+v", ev)
		}
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Fatal("expected id and timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("expected an audit event")
	}
}

func TestAuditFailureCodes(t *testing.T) {
	dir := newMockDirectory()
	seedPrincipal(t, dir, RoleUser, "u@x.com", "secret", "9000000061")
	sink := NewChannelSink(16)
	engine := newTestEngine(t, dir, func(b *Builder) { b.WithConfig(auditConfig()).WithAuditSink(sink) })

	_ = engine.Login(context.Background(), RoleUser, LoginRequest{Email: "u@x.com", Password: "wrong"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "login_failure" || ev.Success || ev.Error != "invalid_credentials" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an audit event")
	}
}

func TestAuditNeverRecordsSecrets(t *testing.T) {
	dir := newMockDirectory()
	p := seedPrincipal(t, dir, RoleUser, "u@x.com", "hunter2-secret", "9000000062")
	buf := &lockedBuffer{}
	engine, err := New().
		WithConfig(auditConfig()).
		WithDirectory(dir).
		WithAuditSink(NewJSONWriterSink(buf)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()
	storedHash := p.PasswordHash

	_ = engine.Login(ctx, RoleUser, LoginRequest{Email: "u@x.com", Password: "hunter2-secret"})
	res, err := engine.VerifyOTP(ctx, RoleUser, VerifyOTPRequest{Email: "u@x.com", OTP: currentOTP(t)})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	_ = engine.ChangePassword(ctx, p, ChangePasswordRequest{CurrentPassword: "hunter2-secret", NewPassword: "another-secret"})
	_, _ = engine.AuthenticateTemp(ctx, RoleUser, res.Token)
	engine.Close()

	out := buf.String()
	if strings.Count(out, "\n") < 4 {
		t.Fatalf("expected at least four audit lines, got %q", out)
	}
	for _, secret := range []string{"hunter2-secret", "another-secret", res.Token, storedHash, p.PasswordHash} {
		if strings.Contains(out, secret) {
			t.Fatalf("audit output leaked %q", secret)
		}
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	dir := newMockDirectory()
	seedPrincipal(t, dir, RoleUser, "u@x.com", "secret", "9000000063")
	sink := NewChannelSink(4)
	engine := newTestEngine(t, dir, func(b *Builder) { b.WithAuditSink(sink) })

	_ = engine.Login(context.Background(), RoleUser, LoginRequest{Email: "u@x.com", Password: "secret"})
	engine.Close()

	select {
	case ev := <-sink.Events():
		t.Fatalf("expected no events, got %+v", ev)
	default:
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("expected nothing dropped")
	}
}

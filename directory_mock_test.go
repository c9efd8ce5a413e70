package eduAuth

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/eduAuth/password"
)

const testOTPSecret = "JBSWY3DPEHPK3PXP"

type mockDirectory struct {
	mu     sync.Mutex
	byID   map[string]*Principal
	nextID int

	findErr   error
	existsErr error
	createErr error
	saveErr   error

	// beforeCreate runs ahead of Create, after the engine's uniqueness checks.
	beforeCreate func()

	createCalls int
	saveCalls   int
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{byID: map[string]*Principal{}}
}

func (m *mockDirectory) add(p *Principal) *Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := p.Clone()
	if stored.ID == "" {
		stored.ID = "id-" + strconv.Itoa(m.nextID)
	}
	m.byID[stored.ID] = stored
	return stored.Clone()
}

func (m *mockDirectory) get(id string) *Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Clone()
}

func (m *mockDirectory) find(role Role, match func(*Principal) bool) (*Principal, error) {
	var deleted *Principal
	for _, p := range m.byID {
		if p.Role != role || !match(p) {
			continue
		}
		if !p.IsDeleted {
			return p.Clone(), nil
		}
		deleted = p
	}
	if deleted != nil {
		return deleted.Clone(), nil
	}
	return nil, ErrPrincipalNotFound
}

func (m *mockDirectory) FindByEmail(_ context.Context, role Role, email string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.find(role, func(p *Principal) bool { return strings.EqualFold(p.Email, email) })
}

func (m *mockDirectory) FindByMobile(_ context.Context, role Role, mobile string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.find(role, func(p *Principal) bool { return p.Mobile == mobile })
}

func (m *mockDirectory) FindByID(_ context.Context, role Role, id string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.byID[id]
	if !ok || p.Role != role {
		return nil, ErrPrincipalNotFound
	}
	return p.Clone(), nil
}

func (m *mockDirectory) Exists(_ context.Context, role Role, field LookupField, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, p := range m.byID {
		if p.Role != role || p.IsDeleted {
			continue
		}
		switch field {
		case FieldEmail:
			if strings.EqualFold(p.Email, value) {
				return true, nil
			}
		case FieldMobile:
			if p.Mobile == value {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockDirectory) Create(_ context.Context, p *Principal) (*Principal, error) {
	m.mu.Lock()
	m.createCalls++
	err := m.createErr
	hook := m.beforeCreate
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return m.add(p), nil
}

func (m *mockDirectory) Save(_ context.Context, p *Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.byID[p.ID]; !ok {
		return ErrPrincipalNotFound
	}
	m.byID[p.ID] = p.Clone()
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("test-jwt-secret-test-jwt-secret!")
	cfg.OTP.Secret = testOTPSecret
	cfg.Password.BcryptCost = 4
	return cfg
}

func newTestEngine(t *testing.T, dir Directory, configure ...func(*Builder)) *Engine {
	t.Helper()
	b := New().WithConfig(testConfig()).WithDirectory(dir)
	for _, fn := range configure {
		fn(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func hashFor(t *testing.T, plain string) string {
	t.Helper()
	bc, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	h, err := bc.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

func seedPrincipal(t *testing.T, dir *mockDirectory, role Role, email, plain, mobile string) *Principal {
	t.Helper()
	p := &Principal{
		Role:         role,
		Name:         "Test " + role.Label(),
		Email:        email,
		Mobile:       mobile,
		PasswordHash: hashFor(t, plain),
		OTP:          "inert",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if role == RoleAdmin {
		p.Admin = &AdminProfile{}
	} else {
		p.User = &UserProfile{SchoolName: "Springfield High", ClassName: "8"}
	}
	return dir.add(p)
}

func currentOTP(t *testing.T) string {
	t.Helper()
	code, err := totp.GenerateCode(testOTPSecret, time.Now())
	if err != nil {
		t.Fatalf("generate otp: %v", err)
	}
	return code
}

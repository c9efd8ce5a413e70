// Package memstore is an in-memory eduAuth.Directory for development, tests
// and the load generator. Data is lost on exit.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	eduAuth "github.com/MrEthical07/eduAuth"
)

type Store struct {
	mu   sync.RWMutex
	byID map[eduAuth.Role]map[string]*eduAuth.Principal
}

func New() *Store {
	return &Store{
		byID: map[eduAuth.Role]map[string]*eduAuth.Principal{
			eduAuth.RoleAdmin: {},
			eduAuth.RoleUser:  {},
		},
	}
}

func (s *Store) FindByEmail(_ context.Context, role eduAuth.Role, email string) (*eduAuth.Principal, error) {
	email = strings.TrimSpace(email)
	return s.find(role, func(p *eduAuth.Principal) bool { return strings.EqualFold(p.Email, email) })
}

func (s *Store) FindByMobile(_ context.Context, role eduAuth.Role, mobile string) (*eduAuth.Principal, error) {
	mobile = strings.TrimSpace(mobile)
	return s.find(role, func(p *eduAuth.Principal) bool { return p.Mobile == mobile })
}

func (s *Store) FindByID(_ context.Context, role eduAuth.Role, id string) (*eduAuth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[role][id]
	if !ok {
		return nil, eduAuth.ErrPrincipalNotFound
	}
	return p.Clone(), nil
}

// Exists ignores deleted principals.
func (s *Store) Exists(_ context.Context, role eduAuth.Role, field eduAuth.LookupField, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveMatch(role, field, value, ""), nil
}

// Create assigns a uuid and rejects a live email or mobile clash with
// ErrDuplicatePrincipal.
func (s *Store) Create(_ context.Context, p *eduAuth.Principal) (*eduAuth.Principal, error) {
	if p == nil || !p.Role.Valid() {
		return nil, eduAuth.ErrRoleNotAllowed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !p.IsDeleted && (s.liveMatch(p.Role, eduAuth.FieldEmail, p.Email, "") || s.liveMatch(p.Role, eduAuth.FieldMobile, p.Mobile, "")) {
		return nil, eduAuth.ErrDuplicatePrincipal
	}

	stored := p.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.byID[p.Role][stored.ID] = stored
	return stored.Clone(), nil
}

func (s *Store) Save(_ context.Context, p *eduAuth.Principal) error {
	if p == nil {
		return eduAuth.ErrPrincipalNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.Role][p.ID]; !ok {
		return eduAuth.ErrPrincipalNotFound
	}
	if !p.IsDeleted && (s.liveMatch(p.Role, eduAuth.FieldEmail, p.Email, p.ID) || s.liveMatch(p.Role, eduAuth.FieldMobile, p.Mobile, p.ID)) {
		return eduAuth.ErrDuplicatePrincipal
	}
	s.byID[p.Role][p.ID] = p.Clone()
	return nil
}

// Len reports how many principals of role are stored, deleted ones included.
func (s *Store) Len(role eduAuth.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID[role])
}

func (s *Store) find(role eduAuth.Role, match func(*eduAuth.Principal) bool) (*eduAuth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var deleted *eduAuth.Principal
	for _, p := range s.byID[role] {
		if !match(p) {
			continue
		}
		if !p.IsDeleted {
			return p.Clone(), nil
		}
		if deleted == nil || p.UpdatedAt.After(deleted.UpdatedAt) {
			deleted = p
		}
	}
	if deleted != nil {
		return deleted.Clone(), nil
	}
	return nil, eduAuth.ErrPrincipalNotFound
}

func (s *Store) liveMatch(role eduAuth.Role, field eduAuth.LookupField, value, exceptID string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for id, p := range s.byID[role] {
		if p.IsDeleted || id == exceptID {
			continue
		}
		switch field {
		case eduAuth.FieldEmail:
			if strings.EqualFold(p.Email, value) {
				return true
			}
		case eduAuth.FieldMobile:
			if p.Mobile == value {
				return true
			}
		}
	}
	return false
}

var _ eduAuth.Directory = (*Store)(nil)

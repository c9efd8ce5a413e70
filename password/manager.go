package password

import (
	"errors"
	"strings"
)

// Algorithm names accepted by Config.Algorithm.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var (
	// ErrEmptyPassword is returned when hashing an empty string.
	ErrEmptyPassword = errors.New("password: empty password")
	// ErrUnknownHash is returned when a stored hash matches no known format.
	ErrUnknownHash = errors.New("password: unrecognised hash format")
	// ErrPasswordTooLong is returned by bcrypt hashing past MaxBcryptLength.
	ErrPasswordTooLong = errors.New("password: longer than 72 bytes")
)

// Hasher is the credential store contract used by the auth engine.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
}

// Config selects the algorithm new hashes are produced with.
type Config struct {
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Config
}

// Manager hashes with the configured algorithm and verifies whichever format a
// stored hash is in, so bcrypt and argon2id records can coexist.
type Manager struct {
	algorithm string
	bcrypt    *Bcrypt
	argon2    *Argon2
}

func NewManager(cfg Config) (*Manager, error) {
	algo := strings.ToLower(strings.TrimSpace(cfg.Algorithm))
	if algo == "" {
		algo = AlgorithmBcrypt
	}
	if algo != AlgorithmBcrypt && algo != AlgorithmArgon2id {
		return nil, errors.New("unsupported password algorithm")
	}

	bc, err := NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	argonCfg := cfg.Argon2
	if argonCfg == (Argon2Config{}) {
		argonCfg = DefaultArgon2Config()
	}
	ar, err := NewArgon2(argonCfg)
	if err != nil {
		return nil, err
	}

	return &Manager{algorithm: algo, bcrypt: bc, argon2: ar}, nil
}

func (m *Manager) Hash(plain string) (string, error) {
	if m.algorithm == AlgorithmArgon2id {
		return m.argon2.Hash(plain)
	}
	return m.bcrypt.Hash(plain)
}

func (m *Manager) Verify(plain, encoded string) (bool, error) {
	switch {
	case isBcryptHash(encoded):
		return m.bcrypt.Verify(plain, encoded)
	case strings.HasPrefix(encoded, argon2Prefix):
		return m.argon2.Verify(plain, encoded)
	default:
		return false, ErrUnknownHash
	}
}

// NeedsUpgrade is true when encoded uses another algorithm than the configured
// one, or the same algorithm with weaker parameters.
func (m *Manager) NeedsUpgrade(encoded string) (bool, error) {
	switch {
	case isBcryptHash(encoded):
		if m.algorithm != AlgorithmBcrypt {
			return true, nil
		}
		return m.bcrypt.NeedsUpgrade(encoded)
	case strings.HasPrefix(encoded, argon2Prefix):
		if m.algorithm != AlgorithmArgon2id {
			return true, nil
		}
		return m.argon2.NeedsUpgrade(encoded)
	default:
		return false, ErrUnknownHash
	}
}

package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/password"
)

// Hasher is satisfied by *password.Argon2.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Service registers and authenticates users.
type Service struct {
	store  Store
	hasher Hasher
	log    *zap.Logger
	now    func() time.Time

	// dummyHash is verified against when the email is unknown so both paths cost the same.
	dummyHash string
}

// NewService builds a Service. A nil logger is replaced with a no-op logger.
func NewService(store Store, hasher Hasher, log *zap.Logger) (*Service, error) {
	if store == nil || hasher == nil {
		return nil, errors.New("identity: store and hasher are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	dummy, err := hasher.Hash("identity-timing-equalizer")
	if err != nil {
		return nil, err
	}
	return &Service{
		store:     store,
		hasher:    hasher,
		log:       log.Named("identity"),
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// NewDefaultService wires a Service with Argon2 at the given parameters.
func NewDefaultService(store Store, cfg password.Config, log *zap.Logger) (*Service, error) {
	h, err := password.NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(store, h, log)
}

// Register hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, name, email, plaintext string) (User, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	u, err := s.store.Create(ctx, User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Authenticate returns the user for a correct email/password pair and
// authgate.ErrInvalidCredentials otherwise. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, plaintext string) (User, error) {
	u, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		_, _ = s.hasher.Verify(plaintext, s.dummyHash)
		return User{}, authgate.ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	ok, err := s.hasher.Verify(plaintext, u.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return User{}, authgate.ErrInvalidCredentials
		}
		s.log.Error("stored password hash unreadable", zap.String("user_id", u.ID), zap.Error(err))
		return User{}, err
	}
	if !ok {
		return User{}, authgate.ErrInvalidCredentials
	}

	if up, _ := s.hasher.NeedsUpgrade(u.PasswordHash); up {
		s.log.Info("password hash uses outdated parameters", zap.String("user_id", u.ID))
	}
	return u, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.ByID(ctx, id)
}

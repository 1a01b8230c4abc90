package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformedToken means the string is not a parseable compact JWS.
	ErrMalformedToken = errors.New("malformed token")
	// ErrSignatureInvalid means the signature, algorithm or key id did not verify.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired means the token is at or past its exp claim.
	ErrExpired = errors.New("token expired")
	// ErrClaimsInvalid means the claims are structurally wrong (issuer, type, subject, times).
	ErrClaimsInvalid = errors.New("token claims invalid")
)

// SigningMethod names a symmetric HMAC algorithm.
type SigningMethod string

const (
	MethodHS256 SigningMethod = "HS256"
	MethodHS384 SigningMethod = "HS384"
	MethodHS512 SigningMethod = "HS512"
)

// ParseSigningMethod accepts the algorithm identifier case-insensitively.
func ParseSigningMethod(s string) (SigningMethod, error) {
	switch SigningMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case "", MethodHS256:
		return MethodHS256, nil
	case MethodHS384:
		return MethodHS384, nil
	case MethodHS512:
		return MethodHS512, nil
	default:
		return "", fmt.Errorf("unsupported signing method %q", s)
	}
}

// Config holds the process-wide signing settings. It is copied by NewManager.
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	Issuer        string
	KeyID         string
	Leeway        time.Duration
	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
}

// Manager mints and decodes tokens. The zero value is not usable; call NewManager.
type Manager struct {
	config Config
	method jwt.SigningMethod
}

// NewManager validates cfg and returns a Manager bound to a private copy of it.
func NewManager(cfg Config) (*Manager, error) {
	method, err := ParseSigningMethod(string(cfg.SigningMethod))
	if err != nil {
		return nil, err
	}
	cfg.SigningMethod = method
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg, method: jwt.GetSigningMethod(string(method))}, nil
}

// Issuer returns the configured iss value.
func (m *Manager) Issuer() string {
	return m.config.Issuer
}

// Now returns the manager clock reading.
func (m *Manager) Now() time.Time {
	return m.config.Now()
}

// Issue fills iss, iat, exp and jti for subject and signs the result.
func (m *Manager) Issue(subject, email string, typ TokenType, ttl time.Duration) (string, Claims, error) {
	if ttl <= 0 {
		return "", Claims{}, errors.New("token ttl must be positive")
	}
	now := m.config.Now()
	claims := Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token, err := m.Mint(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

// Mint signs claims as they are. Claims must carry a type and an exp after iat.
func (m *Manager) Mint(claims Claims) (string, error) {
	if claims.ExpiresAt == nil {
		return "", fmt.Errorf("%w: exp required", ErrClaimsInvalid)
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.config.Secret)
}

// Decode parses tokenStr, verifies its signature with the configured key and checks expiry
// against the manager clock. The returned error wraps exactly one of the package sentinels.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrClaimsInvalid
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrClaimsInvalid):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrClaimsInvalid, err)
	}
}

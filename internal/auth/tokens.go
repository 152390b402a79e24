package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const roleClaim = "role"

// Role values carried in access tokens.
const (
	RoleCustomer = "customer"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

// Identity describes the authenticated principal extracted from a token.
type Identity struct {
	UserID string
	Role   string
}

// Service parses and validates HMAC signed access tokens.
type Service struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration

	// Now is injectable for tests.
	Now func() time.Time
}

// NewService builds a token service from a shared secret.
func NewService(secret, issuer string) *Service {
	return &Service{
		Secret:    []byte(secret),
		Issuer:    issuer,
		ClockSkew: 30 * time.Second,
		Now:       time.Now,
	}
}

// ParseAccessToken verifies the signature and registered claims of a bearer token
// and returns the embedded identity.
func (s *Service) ParseAccessToken(raw string) (Identity, error) {
	if len(s.Secret) == 0 {
		return Identity{}, errors.New("auth: signing secret not configured")
	}
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, s.Secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: parse token: %w", err)
	}

	if alg := tokenAlgorithm(raw); alg != jwa.HS256 {
		return Identity{}, fmt.Errorf("auth: unexpected token algorithm %s", alg)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if s.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(s.ClockSkew))
	}
	if s.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.Issuer))
	}
	if s.Audience != "" {
		options = append(options, jwt.WithAudience(s.Audience))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return Identity{}, fmt.Errorf("auth: validate token: %w", err)
	}

	sub := strings.TrimSpace(tok.Subject())
	if sub == "" {
		return Identity{}, errors.New("auth: token missing subject")
	}
	identity := Identity{UserID: sub, Role: RoleCustomer}
	if v, ok := tok.Get(roleClaim); ok {
		if role, ok := v.(string); ok && strings.TrimSpace(role) != "" {
			identity.Role = role
		}
	}
	return identity, nil
}

// IssueAccessToken mints a signed token for the given identity. Used by the
// seeder and tests; production token issuance lives in the identity service.
func (s *Service) IssueAccessToken(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	builder := jwt.NewBuilder().
		Subject(identity.UserID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(roleClaim, identity.Role)
	if s.Issuer != "" {
		builder = builder.Issuer(s.Issuer)
	}
	if s.Audience != "" {
		builder = builder.Audience([]string{s.Audience})
	}
	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("auth: build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return string(signed), nil
}

func tokenAlgorithm(raw string) jwa.SignatureAlgorithm {
	msg, err := jws.ParseString(raw)
	if err != nil {
		return ""
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return ""
	}
	return sigs[0].ProtectedHeaders().Algorithm()
}

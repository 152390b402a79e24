package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func testTokenService() *Service {
	svc := NewService("test-secret-at-least-32-bytes-long!!", "souq")
	svc.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	svc := testTokenService()

	raw, err := svc.IssueAccessToken(Identity{UserID: "user-1", Role: RoleMerchant}, time.Hour)
	require.NoError(t, err)

	identity, err := svc.ParseAccessToken(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
	require.Equal(t, RoleMerchant, identity.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	svc := testTokenService()
	raw, err := svc.IssueAccessToken(Identity{UserID: "user-1", Role: RoleCustomer}, time.Hour)
	require.NoError(t, err)

	other := testTokenService()
	other.Secret = []byte("another-secret-also-32-bytes-long!!!")
	_, err = other.ParseAccessToken(raw)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := testTokenService()
	raw, err := svc.IssueAccessToken(Identity{UserID: "user-1", Role: RoleCustomer}, time.Minute)
	require.NoError(t, err)

	svc.Now = func() time.Time { return time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC) }
	_, err = svc.ParseAccessToken(raw)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	issuing := NewService("test-secret-at-least-32-bytes-long!!", "someone-else")
	raw, err := issuing.IssueAccessToken(Identity{UserID: "user-1", Role: RoleCustomer}, time.Hour)
	require.NoError(t, err)

	_, err = testTokenService().ParseAccessToken(raw)
	require.Error(t, err)
}

func TestParseDefaultsRoleToCustomer(t *testing.T) {
	svc := testTokenService()

	tok, err := jwt.NewBuilder().
		Subject("user-7").
		Issuer("souq").
		IssuedAt(svc.Now()).
		Expiration(svc.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, svc.Secret))
	require.NoError(t, err)

	identity, err := svc.ParseAccessToken(string(signed))
	require.NoError(t, err)
	require.Equal(t, RoleCustomer, identity.Role)
}

func TestParseRequiresSubject(t *testing.T) {
	svc := testTokenService()

	tok, err := jwt.NewBuilder().
		Issuer("souq").
		IssuedAt(svc.Now()).
		Expiration(svc.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, svc.Secret))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(string(signed))
	require.ErrorContains(t, err, "subject")
}

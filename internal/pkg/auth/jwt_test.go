package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/pkg/apperrors"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() *Claims {
	return &Claims{
		UserID: 100,
		Email:  "ana@biograph.edu",
		Role:   models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "biograph",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateAndExtractClaims(t *testing.T) {
	svc := NewJWTService(JWTConfig{SecretKey: testSecret, TokenIssuer: "biograph"})

	claims, err := svc.ValidateAndExtractClaims(sign(t, validClaims(), testSecret))
	require.NoError(t, err)
	assert.Equal(t, int64(100), claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestSubjectFallbackAndRoleCase(t *testing.T) {
	svc := NewJWTService(JWTConfig{SecretKey: testSecret})
	c := validClaims()
	c.UserID = 0
	c.Subject = "7"
	c.Role = "ADMIN"

	claims, err := svc.ValidateAndExtractClaims(sign(t, c, testSecret))
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService(JWTConfig{SecretKey: testSecret, TokenIssuer: "biograph"})

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	unknownRole := validClaims()
	unknownRole.Role = "janitor"

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", sign(t, expired, testSecret), apperrors.ErrTokenExpired},
		{"wrong secret", sign(t, validClaims(), "other"), apperrors.ErrTokenInvalid},
		{"wrong issuer", sign(t, wrongIssuer, testSecret), apperrors.ErrTokenInvalid},
		{"no expiry", sign(t, noExpiry, testSecret), apperrors.ErrTokenInvalid},
		{"unknown role", sign(t, unknownRole, testSecret), apperrors.ErrTokenInvalid},
		{"malformed", "not-a-token", apperrors.ErrInvalidFormat},
		{"empty", "", apperrors.ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAndExtractClaims(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRejectsNoneAlgorithm(t *testing.T) {
	svc := NewJWTService(JWTConfig{SecretKey: testSecret})
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateAndExtractClaims(token)
	assert.True(t, errors.Is(err, apperrors.ErrTokenInvalid))
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)

	tok, err = ExtractBearerToken(`"bearer a.b.c"`)
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)

	tok, err = ExtractBearerToken("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)

	_, err = ExtractBearerToken("Basic Zm9vOmJhcg==")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidFormat))

	_, err = ExtractBearerToken("")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidFormat))
}

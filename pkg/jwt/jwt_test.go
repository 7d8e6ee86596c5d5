package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-timetable/backend/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "campus-identity",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func TestIssueAndParseToken(t *testing.T) {
	m := newTestManager()

	token, err := m.IssueToken(Identity{
		UserID:           "user-1",
		InstitutionID:    "inst-1",
		Role:             "scheduler",
		CanEditTimetable: true,
	}, 0)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "inst-1", claims.InstitutionID)
	assert.Equal(t, "scheduler", claims.Role)
	assert.True(t, claims.CanEditTimetable)
	assert.Equal(t, "campus-identity", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "JTI 不应为空")
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseToken_Expired(t *testing.T) {
	m := newTestManager()

	token, err := m.IssueToken(Identity{UserID: "user-1", InstitutionID: "inst-1"}, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := newTestManager().IssueToken(Identity{UserID: "user-1", InstitutionID: "inst-1"}, 0)
	require.NoError(t, err)

	other := NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-key-0123456789",
		Issuer:         "campus-identity",
		AccessTokenTTL: time.Minute,
	})
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_WrongIssuer(t *testing.T) {
	m := newTestManager()
	claims := Claims{
		UserID:        "user-1",
		InstitutionID: "inst-1",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_MissingInstitution(t *testing.T) {
	m := newTestManager()
	token, err := m.IssueToken(Identity{UserID: "user-1"}, 0)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := newTestManager().ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

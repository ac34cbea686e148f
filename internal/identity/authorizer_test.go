package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfileFromAuthorizer(t *testing.T) {
	res := map[string]any{
		"access_token": "x",
		"user": map[string]any{
			"email":              "jan@example.com",
			"given_name":         strPtr("Jan"),
			"family_name":        strPtr("Novák"),
			"preferred_username": strPtr("novak"),
			"picture":            strPtr("https://example.com/p.jpg"),
		},
	}

	profile, err := profileFromAuthorizer(res, "jan@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jan Novák", profile.Name)
	assert.Equal(t, "novak", profile.Username)
	assert.Equal(t, "jan@example.com", profile.Email)
	assert.Equal(t, "https://example.com/p.jpg", profile.ImageURL)
}

func TestProfileFromAuthorizerFallbacks(t *testing.T) {
	profile, err := profileFromAuthorizer(map[string]any{
		"user": map[string]any{"email": "jan@example.com"},
	}, "jan@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jan@example.com", profile.Username)
	assert.Equal(t, "jan@example.com", profile.Name)

	_, err = profileFromAuthorizer(map[string]any{"user": nil}, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifierFunc(t *testing.T) {
	var v Verifier = VerifierFunc(func(_ context.Context, username, password string) (*Profile, error) {
		if password != "pw" {
			return nil, ErrNotFound
		}
		return &Profile{Username: username, Name: "N"}, nil
	})

	p, err := v.Verify(context.Background(), "u", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u", p.Username)

	_, err = v.Verify(context.Background(), "u", "bad")
	assert.True(t, errors.Is(err, ErrNotFound))
}

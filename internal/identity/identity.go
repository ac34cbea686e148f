// Package identity verifies a username and password against an external
// provider and returns the user's profile.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the provider rejected the credentials
	ErrNotFound = errors.New("identity not found")

	// ErrUnavailable means the provider could not be reached or answered in an unexpected shape
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Profile is what a provider knows about a user
type Profile struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Age         string `json:"age,omitempty"`
	Born        string `json:"born,omitempty"`
	Phone       string `json:"tel,omitempty"`
	Address     string `json:"address,omitempty"`
	Class       string `json:"class,omitempty"`
	StudentID   string `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	SchoolEmail string `json:"schoolEmail,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Verifier checks credentials with an identity provider
type Verifier interface {
	Verify(ctx context.Context, username, password string) (*Profile, error)
}

// VerifierFunc adapts a function to a Verifier
type VerifierFunc func(ctx context.Context, username, password string) (*Profile, error)

// Verify calls f
func (f VerifierFunc) Verify(ctx context.Context, username, password string) (*Profile, error) {
	return f(ctx, username, password)
}

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"

	authorizer "github.com/localnerve/authorizer-go"
	"go.uber.org/zap"
)

// AuthorizerVerifier checks credentials against an Authorizer instance
type AuthorizerVerifier struct {
	client *authorizer.AuthorizerClient
	log    *zap.Logger
}

// NewAuthorizerVerifier creates a client for the Authorizer at authzURL
func NewAuthorizerVerifier(clientID, authzURL, redirectURL string, log *zap.Logger) (*AuthorizerVerifier, error) {
	client, err := authorizer.NewAuthorizerClient(clientID, authzURL, redirectURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer client: %w", err)
	}
	return &AuthorizerVerifier{client: client, log: log.Named("authorizer")}, nil
}

// Verify implements Verifier. The username is sent as the login email.
func (a *AuthorizerVerifier) Verify(ctx context.Context, username, password string) (*Profile, error) {
	if username == "" || password == "" {
		return nil, ErrNotFound
	}

	// The SDK's input field types differ between releases; building it from
	// JSON keeps this independent of them.
	raw, err := json.Marshal(map[string]string{"email": username, "password": password})
	if err != nil {
		return nil, err
	}
	var input authorizer.LoginInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	type result struct {
		res any
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := a.client.Login(&input)
		done <- result{res: res, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case r = <-done:
	}

	if r.err != nil {
		var netErr net.Error
		var urlErr *url.Error
		if errors.As(r.err, &netErr) || errors.As(r.err, &urlErr) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
		}
		a.log.Debug("authorizer rejected login", zap.Error(r.err))
		return nil, ErrNotFound
	}

	return profileFromAuthorizer(r.res, username)
}

// profileFromAuthorizer reads the user object of a login response
func profileFromAuthorizer(res any, username string) (*Profile, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var body struct {
		User *struct {
			Email             string  `json:"email"`
			GivenName         *string `json:"given_name"`
			FamilyName        *string `json:"family_name"`
			Nickname          *string `json:"nickname"`
			PreferredUsername *string `json:"preferred_username"`
			PhoneNumber       *string `json:"phone_number"`
			Picture           *string `json:"picture"`
		} `json:"user"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if body.User == nil {
		return nil, ErrNotFound
	}

	u := body.User
	profile := &Profile{
		Username: deref(u.PreferredUsername, username),
		Email:    u.Email,
		Phone:    deref(u.PhoneNumber, ""),
		ImageURL: deref(u.Picture, ""),
	}

	given, family := deref(u.GivenName, ""), deref(u.FamilyName, "")
	switch {
	case given != "" && family != "":
		profile.Name = given + " " + family
	case given != "" || family != "":
		profile.Name = given + family
	default:
		profile.Name = deref(u.Nickname, profile.Username)
	}
	return profile, nil
}

func deref(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

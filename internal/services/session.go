// session.go
//
// Student project showcase backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of kiosek.
// kiosek is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// kiosek is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with kiosek.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity is the user a session token is bound to
type Identity struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
}

// SessionStore keeps the token to identity bindings.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	Put(ctx context.Context, token string, identity Identity, ttl time.Duration) error
	Get(ctx context.Context, token string) (Identity, bool, error)
	Delete(ctx context.Context, token string) error
}

// SessionOptions configures token signing
type SessionOptions struct {
	Secret   string
	Issuer   string
	Audience string
	Validity time.Duration
	Clock    func() time.Time
}

const (
	minSessionValidity = 24 * time.Hour
	maxSessionValidity = 7 * 24 * time.Hour
)

type sessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SessionRegistry issues signed session tokens and validates them against both
// the signature and the store. A token that verifies but is missing from the
// store is rejected.
type SessionRegistry struct {
	store    SessionStore
	secret   []byte
	issuer   string
	audience string
	validity time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewSessionRegistry creates a SessionRegistry. Validity is clamped to one to seven days.
func NewSessionRegistry(store SessionStore, opts SessionOptions, log *zap.Logger) *SessionRegistry {
	validity := min(max(opts.Validity, minSessionValidity), maxSessionValidity)
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &SessionRegistry{
		store:    store,
		secret:   []byte(opts.Secret),
		issuer:   opts.Issuer,
		audience: opts.Audience,
		validity: validity,
		now:      clock,
		log:      log.Named("sessions"),
	}
}

// Validity is the lifetime of issued tokens
func (r *SessionRegistry) Validity() time.Duration {
	return r.validity
}

// Issue creates a token for identity and records it in the store
func (r *SessionRegistry) Issue(ctx context.Context, identity Identity) (string, error) {
	if identity.Username == "" {
		return "", fmt.Errorf("%w: identity has no username", ErrValidation)
	}

	now := r.now()
	claims := sessionClaims{
		Name:  identity.Name,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   identity.Username,
			Audience:  jwt.ClaimStrings{r.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(r.validity)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if err := r.store.Put(ctx, token, identity, r.validity); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	sessionsIssued.Inc()
	r.log.Debug("session issued", zap.String("username", identity.Username))
	return token, nil
}

// Validate reports whether token is known and unexpired
func (r *SessionRegistry) Validate(ctx context.Context, token string) bool {
	_, ok := r.IdentityOf(ctx, token)
	return ok
}

// IdentityOf returns the identity bound to a valid token.
// An expired token is evicted from the store as soon as it is seen.
func (r *SessionRegistry) IdentityOf(ctx context.Context, token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}

	identity, found, err := r.store.Get(ctx, token)
	if err != nil {
		r.log.Warn("session store lookup failed", zap.Error(err))
		return Identity{}, false
	}
	if !found {
		return Identity{}, false
	}

	claims := &sessionClaims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return r.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithAudience(r.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			r.evict(ctx, token)
		} else {
			r.log.Debug("session token rejected", zap.Error(err))
		}
		return Identity{}, false
	}

	if claims.Subject != identity.Username {
		r.log.Warn("session token subject does not match stored identity")
		return Identity{}, false
	}
	return identity, true
}

func (r *SessionRegistry) evict(ctx context.Context, token string) {
	if err := r.store.Delete(ctx, token); err != nil {
		r.log.Warn("failed to evict expired session", zap.Error(err))
		return
	}
	sessionsExpired.Inc()
}

// auth.go
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

package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
)

const (
	localsToken    = "token"
	localsIdentity = "identity"
	bearerPrefix   = "Bearer "
)

// Guard is the authorization surface the middleware needs
type Guard interface {
	Identity(ctx context.Context, token string) (services.Identity, bool)
	IsOwner(ctx context.Context, projectID, token string) bool
	IsAdmin(ctx context.Context, token string) bool
}

// ProjectLookup reports whether a project id exists
type ProjectLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// BearerToken extracts the token from the Authorization header
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// TokenFrom returns the token stored by an auth middleware
func TokenFrom(c *fiber.Ctx) string {
	token, _ := c.Locals(localsToken).(string)
	return token
}

// IdentityFrom returns the identity stored by an auth middleware
func IdentityFrom(c *fiber.Ctx) (services.Identity, bool) {
	identity, ok := c.Locals(localsIdentity).(services.Identity)
	return identity, ok
}

// authenticate validates the bearer token and stores the caller in Locals
func authenticate(c *fiber.Ctx, guard Guard) (string, error) {
	token := BearerToken(c)
	if token == "" {
		return "", types.Unauthorized("auth.missing")
	}

	identity, ok := guard.Identity(c.UserContext(), token)
	if !ok {
		return "", types.Unauthorized("auth.invalid")
	}

	c.Locals(localsToken, token)
	c.Locals(localsIdentity, identity)
	return token, nil
}

// RequireAuthenticated rejects requests without a valid session token
func RequireAuthenticated(guard Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authenticate(c, guard); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAdmin rejects requests whose caller is not on the admin allow-list
func RequireAdmin(guard Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := authenticate(c, guard)
		if err != nil {
			return err
		}
		if !guard.IsAdmin(c.UserContext(), token) {
			return types.Unauthorized("auth.admin")
		}
		return c.Next()
	}
}

// RequireOwner rejects requests whose caller did not author the project named
// by the id query parameter. A missing or unknown id is a bad request.
func RequireOwner(guard Guard, projects ProjectLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := authenticate(c, guard)
		if err != nil {
			return err
		}

		id := c.Query("id")
		if id == "" {
			return types.BadRequest("Missing project id", "validation.id")
		}
		exists, err := projects.Exists(c.UserContext(), id)
		if err != nil {
			return types.Internal("data.lookup")
		}
		if !exists {
			return types.BadRequest("Unknown project id", "validation.id")
		}

		if !guard.IsOwner(c.UserContext(), id, token) {
			return types.Unauthorized("auth.owner")
		}
		return c.Next()
	}
}

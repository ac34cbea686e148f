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

package helpers

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/localnerve/kiosek/internal/identity"
)

func randInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// GeneratePassword returns a random password with at least one upper case
// letter, special character and digit
func GeneratePassword() string {
	const (
		lower   = "abcdefghijklmnopqrstuvwxyz"
		upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		special = "!@#$%^&*"
		numbers = "0123456789"
		all     = lower + upper + special + numbers
	)

	password := make([]byte, 10)
	password[0] = upper[randInt(len(upper))]
	password[1] = special[randInt(len(special))]
	password[2] = numbers[randInt(len(numbers))]

	for i := 3; i < 10; i++ {
		password[i] = all[randInt(len(all))]
	}

	for i := range password {
		j := randInt(len(password))
		password[i], password[j] = password[j], password[i]
	}

	return string(password)
}

// Accounts is an in-memory identity provider for tests
type Accounts struct {
	mu        sync.RWMutex
	passwords map[string]string
	down      bool
}

// NewAccounts creates an empty Accounts
func NewAccounts() *Accounts {
	return &Accounts{passwords: make(map[string]string)}
}

// Add registers a user with a generated password and returns the password
func (a *Accounts) Add(username string) string {
	password := GeneratePassword()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.passwords[username] = password
	return password
}

// SetDown makes every verification fail as unreachable
func (a *Accounts) SetDown(down bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.down = down
}

// Verify implements identity.Verifier
func (a *Accounts) Verify(_ context.Context, username, password string) (*identity.Profile, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.down {
		return nil, identity.ErrUnavailable
	}
	expected, ok := a.passwords[username]
	if !ok || expected != password {
		return nil, identity.ErrNotFound
	}
	return &identity.Profile{
		Name:     "Student " + username,
		Username: username,
		Email:    username + "@example.com",
	}, nil
}

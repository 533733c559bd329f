/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package auth gates the dashboard behind a credential check and remembers
// the signed-in user between runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/chemvis/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no stored session")
	errInvalidHash        = errors.New("invalid password hash")
)

// Provider verifies a username and password.
type Provider interface {
	Authenticate(ctx context.Context, username, password string) (*models.Session, error)
}

// LocalProvider checks credentials against bcrypt hashes.
type LocalProvider struct {
	users map[string][]byte
	dummy []byte
	now   func() time.Time
}

// NewLocalProvider builds a provider from configured users.
func NewLocalProvider(users []models.User) (*LocalProvider, error) {
	p := &LocalProvider{
		users: make(map[string][]byte, len(users)),
		now:   time.Now,
	}

	for _, u := range users {
		if u.Username == "" {
			return nil, ErrUsernameRequired
		}

		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("%w for user %q: %w", errInvalidHash, u.Username, err)
		}

		p.users[u.Username] = []byte(u.PasswordHash)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("chemvis"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	p.dummy = dummy

	return p, nil
}

// NewSingleUserProvider hashes one plaintext credential, for clients whose
// configuration only carries the backend login.
func NewSingleUserProvider(username, password string) (*LocalProvider, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}

	hash, err := HashPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return NewLocalProvider([]models.User{{Username: username, PasswordHash: hash}})
}

// Authenticate implements Provider.
func (p *LocalProvider) Authenticate(_ context.Context, username, password string) (*models.Session, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}

	if password == "" {
		return nil, ErrPasswordRequired
	}

	hash, ok := p.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &models.Session{Username: username, AuthenticatedAt: p.now()}, nil
}

// HashPassword returns a bcrypt hash of password at cost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash: %w", err)
	}

	return string(hash), nil
}

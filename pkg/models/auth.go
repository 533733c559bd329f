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

package models

import "time"

// Session is the stored credential record that gates the dashboard.
type Session struct {
	Username        string    `json:"username"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// User is a configured account. PasswordHash is a bcrypt hash.
type User struct {
	Username     string `json:"username" yaml:"username" toml:"username"`
	PasswordHash string `json:"password_hash" yaml:"password_hash" toml:"password_hash" sensitive:"true"`
}

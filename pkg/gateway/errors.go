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

package gateway

import "errors"

var (
	// ErrUnauthorized marks a 401 from the backend, which points at a
	// credential misconfiguration rather than an unreachable server.
	ErrUnauthorized     = errors.New("authentication failed (401)")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrUnreachable      = errors.New("backend unreachable")
	ErrDecode           = errors.New("failed to decode response")
	errReportFailed     = errors.New("report generation failed")
)

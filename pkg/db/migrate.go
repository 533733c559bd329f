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

package db

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/carverauto/chemvis/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type execFunc func(ctx context.Context, stmt string) error

// applySchema runs every statement of the named schema file. Statements are
// idempotent, so it is safe on every start.
func applySchema(ctx context.Context, file string, exec execFunc, log logger.Logger) error {
	content, err := migrationsFS.ReadFile("migrations/" + file)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", ErrFailedToInit, file, err)
	}

	statements := splitSQLStatements(string(content))
	log.Debug().Str("schema", file).Int("statement_count", len(statements)).Msg("Applying database schema")

	for i, stmt := range statements {
		if err := exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: statement %d: %w", ErrFailedToInit, i+1, err)
		}
	}

	return nil
}

// splitSQLStatements splits on semicolons outside of line comments.
func splitSQLStatements(content string) []string {
	var (
		b   strings.Builder
		out []string
	)

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		b.WriteString(line)
		b.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(b.String()), ";")); stmt != "" {
				out = append(out, stmt)
			}

			b.Reset()
		}
	}

	if stmt := strings.TrimSpace(b.String()); stmt != "" {
		out = append(out, stmt)
	}

	return out
}

const retainSessions = `
DELETE FROM upload_sessions
WHERE id NOT IN (SELECT id FROM (SELECT id FROM upload_sessions ORDER BY id DESC LIMIT %d) AS keep)`

const pruneOrphans = `
DELETE FROM equipment
WHERE session_id NOT IN (SELECT id FROM upload_sessions)`

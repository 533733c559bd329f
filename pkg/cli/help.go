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

package cli

import "fmt"

// ShowHelp displays the help message.
func ShowHelp() {
	fmt.Printf(`chemvis: industrial equipment telemetry dashboard
Usage:
  chemvis [-config file] [command] [options]

Commands:
  dashboard (default)  Interactive dashboard with login screen
  status               Print summary, mode and per-resource status once
  upload <file.csv>    Upload a CSV dataset (ingested locally in demo mode)
  report [-out dir]    Export the analytics report
  watch                Follow live updates and print each refresh
  login [-u user]      Sign in and store the session
  login -logout        Clear the stored session
  hash [-cost n] [pw]  Generate a bcrypt hash for the server's user table

Global options:
  -config string  path to a JSON, TOML or YAML client config
  -help           show this help message

Environment:
  CHEMVIS_BASE_URL, CHEMVIS_WEBSOCKET_URL, CHEMVIS_USERNAME, CHEMVIS_PASSWORD
  override the matching config keys. CONFIG_SOURCE=env reads CONFIG_JSON only.

Examples:
  chemvis login
  chemvis upload ./plant.csv
  chemvis report -out ./reports
  chemvis hash -cost %d 'password123'
`, defaultCost)
}

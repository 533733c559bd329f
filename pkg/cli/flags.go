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

import (
	"flag"
	"fmt"
	"io"
)

const defaultSubCmd = "dashboard"

// SubcommandHandler defines the interface for parsing subcommand flags.
type SubcommandHandler interface {
	Parse(args []string, cfg *CmdConfig) error
}

type noFlagsHandler struct{ name string }

func (h noFlagsHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet(h.name, flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Args = fs.Args()

	return nil
}

// UploadHandler handles flags for the upload subcommand.
type UploadHandler struct{}

func (UploadHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	file := fs.String("file", "", "path to the CSV file (may also be given as an argument)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.File = *file
	cfg.Args = fs.Args()

	if cfg.File == "" && len(cfg.Args) > 0 {
		cfg.File = cfg.Args[0]
	}

	if cfg.File == "" {
		return errUploadNeedsFile
	}

	return nil
}

// ReportHandler handles flags for the report subcommand.
type ReportHandler struct{}

func (ReportHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	out := fs.String("out", "", "directory to write the report into (default: report_dir from config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OutputDir = *out
	cfg.Args = fs.Args()

	return nil
}

// LoginHandler handles flags for the login subcommand.
type LoginHandler struct{}

func (LoginHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	logout := fs.Bool("logout", false, "clear the stored session")
	user := fs.String("u", "", "username (default: username from config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Logout = *logout
	cfg.Username = *user
	cfg.Args = fs.Args()

	return nil
}

// HashHandler handles flags for the hash subcommand.
type HashHandler struct{}

func (HashHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	cost := fs.Int("cost", defaultCost, fmt.Sprintf("bcrypt cost factor (%d-%d)", minCost, maxCost))

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cost < minCost || *cost > maxCost {
		return errInvalidCost
	}

	cfg.Cost = *cost
	cfg.Args = fs.Args()

	return nil
}

var subcommands = map[string]SubcommandHandler{
	"dashboard": noFlagsHandler{name: "dashboard"},
	"status":    noFlagsHandler{name: "status"},
	"watch":     noFlagsHandler{name: "watch"},
	"upload":    UploadHandler{},
	"report":    ReportHandler{},
	"login":     LoginHandler{},
	"hash":      HashHandler{},
}

// ParseFlags parses global flags followed by an optional subcommand and its flags.
func ParseFlags(args []string, output io.Writer) (*CmdConfig, error) {
	fs := flag.NewFlagSet("chemvis", flag.ContinueOnError)
	fs.SetOutput(output)

	help := fs.Bool("help", false, "show help message")
	configFile := fs.String("config", "", "path to client config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &CmdConfig{
		Help:       *help,
		ConfigFile: *configFile,
		SubCmd:     defaultSubCmd,
		Cost:       defaultCost,
	}

	rest := fs.Args()
	if len(rest) > 0 {
		cfg.SubCmd = rest[0]
		rest = rest[1:]
	}

	handler, ok := subcommands[cfg.SubCmd]
	if !ok {
		return cfg, fmt.Errorf("%w: %s", errUnknownCommand, cfg.SubCmd)
	}

	if err := handler.Parse(rest, cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", cfg.SubCmd, err)
	}

	return cfg, nil
}

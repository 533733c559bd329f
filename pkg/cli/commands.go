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
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carverauto/chemvis/pkg/auth"
	"github.com/carverauto/chemvis/pkg/dashboard"
	"github.com/carverauto/chemvis/pkg/gateway"
	"github.com/carverauto/chemvis/pkg/models"
)

// Run executes the parsed command.
func Run(ctx context.Context, cmd *CmdConfig, stdin io.Reader, stdout io.Writer) error {
	if cmd.Help {
		ShowHelp()
		return nil
	}

	if cmd.SubCmd == "hash" {
		return RunHash(cmd, stdin, stdout)
	}

	rt, err := Bootstrap(ctx, cmd)
	if err != nil {
		return err
	}

	switch cmd.SubCmd {
	case "dashboard":
		return RunDashboard(ctx, rt)
	case "status":
		return RunStatus(ctx, rt, stdout)
	case "upload":
		return RunUpload(ctx, rt, cmd.File, stdout)
	case "report":
		return RunReport(ctx, rt, cmd.OutputDir, stdout)
	case "watch":
		return RunWatch(ctx, rt, stdout)
	case "login":
		return RunLogin(ctx, rt, cmd, stdin, stdout)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd.SubCmd)
	}
}

// RunStatus performs one joint fetch and prints the result.
func RunStatus(ctx context.Context, rt *Runtime, w io.Writer) error {
	if _, err := rt.requireSession(); err != nil {
		return err
	}

	st := rt.Controller.Refresh(ctx)
	printState(w, st, rt.Client.Modes().Resources())

	return nil
}

// RunUpload uploads path and prints the outcome.
func RunUpload(ctx context.Context, rt *Runtime, path string, w io.Writer) error {
	if _, err := rt.requireSession(); err != nil {
		return err
	}

	res, err := rt.Controller.Upload(ctx, path)
	if err != nil {
		return err
	}

	mode := "live"
	if res.Demo {
		mode = "demo"
	}

	_, err = fmt.Fprintf(w, "%s (%s)\n", res.Message, mode)

	return err
}

// RunReport exports the report into dir, or the configured report_dir.
func RunReport(ctx context.Context, rt *Runtime, dir string, w io.Writer) error {
	if _, err := rt.requireSession(); err != nil {
		return err
	}

	if dir == "" {
		dir = rt.Config.ReportDir
	}

	path, rep, err := rt.Controller.ExportReport(ctx, dir)
	if err != nil {
		return err
	}

	source := "server"
	if rep.Demo {
		source = "offline"
	}

	_, err = fmt.Fprintf(w, "Report saved to %s (%s, %d bytes)\n", path, source, len(rep.Body))

	return err
}

// RunWatch prints a line for every published dashboard state until ctx ends.
func RunWatch(ctx context.Context, rt *Runtime, w io.Writer) error {
	if _, err := rt.requireSession(); err != nil {
		return err
	}

	updates := rt.Controller.Subscribe()

	errCh := make(chan error, 1)

	go func() { errCh <- rt.Controller.Run(ctx, rt.Listener) }()

	for {
		select {
		case st := <-updates:
			if st.Loading {
				continue
			}

			channel := "off"
			if st.ChannelLive {
				channel = "on"
			}

			fmt.Fprintf(w, "%s mode=%s channel=%s items=%d avg_flow=%.2f avg_pressure=%.2f avg_temp=%.2f\n",
				st.UpdatedAt.Format(time.TimeOnly), st.Mode, channel, st.Summary.TotalEquipment,
				st.Summary.AvgFlowrate, st.Summary.AvgPressure, st.Summary.AvgTemperature)
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		}
	}
}

// RunLogin verifies credentials and stores the session, or clears it.
func RunLogin(ctx context.Context, rt *Runtime, cmd *CmdConfig, stdin io.Reader, w io.Writer) error {
	if cmd.Logout {
		if err := rt.Sessions.Clear(); err != nil {
			return err
		}

		_, err := fmt.Fprintln(w, "Logged out.")

		return err
	}

	if len(cmd.Args) == 0 && IsInputFromTerminal() {
		m := newDashboardModel(ctx, rt, true)
		if _, err := tea.NewProgram(m).Run(); err != nil {
			return err
		}

		if m.session == nil {
			return auth.ErrInvalidCredentials
		}

		_, err := fmt.Fprintf(w, "Logged in as %s.\n", m.session.Username)

		return err
	}

	username := cmd.Username
	if username == "" {
		username = rt.Config.Username
	}

	password, err := readSecret(cmd.Args, stdin)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	sess, err := login(ctx, rt, username, password)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "Logged in as %s.\n", sess.Username)

	return err
}

func login(ctx context.Context, rt *Runtime, username, password string) (*models.Session, error) {
	sess, err := rt.Auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if err := rt.Sessions.Save(sess); err != nil {
		return nil, err
	}

	rt.Logger.Info().Str("username", sess.Username).Msg("Session stored")

	return sess, nil
}

func printState(w io.Writer, st dashboard.State, resources map[gateway.Resource]gateway.ResourceStatus) {
	fmt.Fprintf(w, "Mode: %s\n", strings.ToUpper(st.Mode.String()))
	fmt.Fprintf(w, "Total Equipment: %d\n", st.Summary.TotalEquipment)
	fmt.Fprintf(w, "Avg Flowrate: %.2f m3/h\n", st.Summary.AvgFlowrate)
	fmt.Fprintf(w, "Avg Pressure: %.2f Bar\n", st.Summary.AvgPressure)
	fmt.Fprintf(w, "Avg Temperature: %.2f C\n", st.Summary.AvgTemperature)

	fmt.Fprintln(w, "Type Distribution:")

	for _, tc := range sortedTypes(st.Summary.TypeDistribution) {
		fmt.Fprintf(w, "  %-24s %d\n", tc.name, tc.count)
	}

	fmt.Fprintln(w, "Resources:")

	names := make([]string, 0, len(resources))
	for r := range resources {
		names = append(names, string(r))
	}

	sort.Strings(names)

	for _, n := range names {
		rs := resources[gateway.Resource(n)]

		line := fmt.Sprintf("  %-10s %s", n, rs.Mode)
		if rs.Error != "" {
			line += "  " + rs.Error
		}

		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w, "Recent Uploads:")

	for _, h := range st.History {
		fmt.Fprintf(w, "  %-32s %s  %d items\n", h.Filename, h.UploadDate.Local().Format(time.DateTime), h.ItemCount)
	}
}

type typeCount struct {
	name  string
	count int
}

func sortedTypes(dist map[string]int) []typeCount {
	out := make([]typeCount, 0, len(dist))
	for k, v := range dist {
		out = append(out, typeCount{k, v})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}

		return out[i].name < out[j].name
	})

	return out
}

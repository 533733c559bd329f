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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/chemvis/pkg/auth"
)

const (
	defaultCost      = 12
	minCost          = 4
	maxCost          = 31
	hashPadding      = 2
	hashPaddingSides = 4
	focusedPassword  = 0
	focusedCost      = 1
	focusedDone      = 2
)

type hashModel struct {
	passwordInput textinput.Model
	costInput     textinput.Model
	hash          string
	err           error
	focused       int
	copyMessage   string
	canCopy       bool
	styles        styles
}

func newInput(placeholder string, width int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Width = width
	in.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	in.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))

	return in
}

func newPasswordInput(placeholder string) textinput.Model {
	in := newInput(placeholder, 40)
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'

	return in
}

func clipboardAvailable() bool {
	return !clipboard.Unsupported
}

func initialHashModel() *hashModel {
	pi := newPasswordInput("Enter password")
	pi.Focus()

	return &hashModel{
		passwordInput: pi,
		costInput:     newInput(fmt.Sprintf("Enter cost (%d-%d, default %d)", minCost, maxCost, defaultCost), 20),
		focused:       focusedPassword,
		canCopy:       clipboardAvailable(),
		styles:        newStyles(),
	}
}

func (*hashModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *hashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.focused {
	case focusedPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	case focusedCost:
		m.costInput, cmd = m.costInput.Update(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, cmd
	}

	//nolint:exhaustive // Default case handles all unlisted keys
	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		return m.handleEnter(cmd)
	case tea.KeyTab:
		return m.handleTab(cmd)
	default:
		if m.focused == focusedDone && keyMsg.String() == "c" && m.canCopy {
			m.copyMessage = copyToClipboard(m.hash, "Hash")
		}

		return m, cmd
	}
}

func (m *hashModel) handleEnter(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	switch m.focused {
	case focusedPassword:
		m.passwordInput.Blur()
		m.costInput.Focus()
		m.focused = focusedCost

		return m, textinput.Blink
	case focusedCost:
		m.generate()
		return m, nil
	}

	return m, cmd
}

func (m *hashModel) handleTab(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	switch m.focused {
	case focusedPassword:
		m.passwordInput.Blur()
		m.costInput.Focus()
		m.focused = focusedCost

		return m, textinput.Blink
	case focusedCost:
		m.costInput.Blur()
		m.passwordInput.Focus()
		m.focused = focusedPassword

		return m, textinput.Blink
	}

	return m, cmd
}

func (m *hashModel) generate() {
	cost := defaultCost

	if costStr := strings.TrimSpace(m.costInput.Value()); costStr != "" {
		var err error

		cost, err = strconv.Atoi(costStr)
		if err != nil {
			m.err = errInvalidCost
			return
		}
	}

	hash, err := generateBcryptNonInteractive(m.passwordInput.Value(), cost)
	if err != nil {
		m.err = err
		return
	}

	m.hash = hash
	m.err = nil
	m.focused = focusedDone
	m.copyMessage = ""
}

func (m *hashModel) View() string {
	var content strings.Builder

	s := m.styles

	content.WriteString(s.focused.Render("ChemVis: Bcrypt Generator") + "\n\n")

	if m.focused < focusedDone {
		content.WriteString(lipgloss.JoinVertical(lipgloss.Left, s.focused2.Render("Password:"), m.passwordInput.View()))
		content.WriteString("\n\n")
		content.WriteString(lipgloss.JoinVertical(lipgloss.Left, s.focused2.Render("Cost Factor:"), m.costInput.View()))
		content.WriteString("\n\n")
		content.WriteString(s.help.Render("Enter → next field | Tab → switch field | Ctrl+C/Esc → quit"))
	} else {
		display := `"` + m.hash + `"`
		box := s.hash.Width(len(display) + hashPaddingSides).Padding(0, hashPadding).Render(display)
		content.WriteString(lipgloss.JoinVertical(lipgloss.Left, s.focused2.Render("Generated Bcrypt Hash:"), box))
		content.WriteString("\n\n")

		hint := "Select and Ctrl+Shift+C to copy"
		if m.canCopy {
			hint = "Press C to copy (or select and Ctrl+Shift+C)"
		}

		content.WriteString(lipgloss.JoinVertical(lipgloss.Left, s.hint.Render(hint), s.help.Render("Ctrl+C/Esc → quit")))

		if m.copyMessage != "" {
			content.WriteString("\n" + messageStyle(s, m.copyMessage).Render(m.copyMessage))
		}
	}

	if m.err != nil {
		content.WriteString("\n\n" + s.error.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return s.app.Align(lipgloss.Left).Render(content.String())
}

func copyToClipboard(text, what string) string {
	if err := clipboard.WriteAll(text); err != nil {
		return "Failed to copy to clipboard"
	}

	return what + " copied to clipboard!"
}

func messageStyle(s styles, msg string) lipgloss.Style {
	if strings.HasPrefix(msg, "Failed") {
		return s.error
	}

	return s.success
}

// generateBcryptNonInteractive handles non-interactive mode.
func generateBcryptNonInteractive(password string, cost int) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errEmptyPassword
	}

	if cost < minCost || cost > maxCost {
		return "", errInvalidCost
	}

	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errHashFailed, err.Error())
	}

	return hash, nil
}

// RunHash prints a hash for the password given in args or on stdin, or
// launches the interactive generator when neither is present.
func RunHash(cfg *CmdConfig, stdin io.Reader, stdout io.Writer) error {
	if len(cfg.Args) == 0 && IsInputFromTerminal() {
		_, err := tea.NewProgram(initialHashModel(), tea.WithAltScreen()).Run()
		return err
	}

	password, err := readSecret(cfg.Args, stdin)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	hash, err := generateBcryptNonInteractive(password, cfg.Cost)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, hash)

	return err
}

func readSecret(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// IsInputFromTerminal reports whether stdin is a character device.
func IsInputFromTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

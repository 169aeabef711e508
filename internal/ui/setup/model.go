// Package setup is the first-run form that writes the configuration file
// and stores the IMAP password in the keyring.
package setup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/credential"
	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/model"
	"github.com/nhle/mailbox-admin/internal/theme"
)

const validateTimeout = 30 * time.Second

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeForm       Mode = iota // Editing the form
	ModeValidating             // Testing connection and saving
	ModeResult                 // Showing the result
)

// DoneMsg signals that the configuration was saved.
type DoneMsg struct {
	Config *model.AppConfig
}

// CancelMsg signals that setup was aborted.
type CancelMsg struct{}

// savedMsg carries the result of validateAndSave.
type savedMsg struct {
	cfg *model.AppConfig
	err error
}

// Validator checks that the server accepts cfg.
type Validator func(ctx context.Context, cfg imap.Config) error

// CredentialSetter stores secrets.
type CredentialSetter interface {
	Set(key, value string) error
}

// CheckConnection logs in with cfg and disconnects again.
func CheckConnection(ctx context.Context, cfg imap.Config) error {
	s := imap.NewSession(cfg, zerolog.Nop())
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Disconnect(ctx)
}

type formValues struct {
	host     string
	port     string
	email    string
	password string
	tls      bool
	catchAll string
}

// Options configures a setup Model.
type Options struct {
	Path        string
	Credentials CredentialSetter
	Validate    Validator

	// QuitOnDone ends the program after saving or aborting, for the
	// standalone setup command.
	QuitOnDone bool
}

// Model is the Bubble Tea model for the setup form.
type Model struct {
	mode    Mode
	base    *model.AppConfig
	opts    Options
	form    *huh.Form
	values  *formValues
	spinner spinner.Model
	saved   *model.AppConfig
	err     error

	width, height int
}

// New creates a setup form prefilled from cfg.
func New(cfg *model.AppConfig, opts Options, width, height int) Model {
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	if opts.Validate == nil {
		opts.Validate = CheckConnection
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	port := cfg.IMAP.Port
	if port == 0 {
		port = imap.DefaultPort
	}

	m := Model{
		base: cfg,
		opts: opts,
		values: &formValues{
			host:     cfg.IMAP.Host,
			port:     strconv.Itoa(port),
			email:    cfg.IMAP.Email,
			tls:      cfg.IMAP.TLS,
			catchAll: strings.Join(cfg.Mailboxes.CatchAll, ", "),
		},
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.form = m.buildForm()
	return m
}

// Init initialises the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Description("Server of the mailing-list account").
				Placeholder("imap.example.com").
				Value(&m.values.host).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&m.values.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Email").
				Description("Login of the list account").
				Placeholder("lists@example.com").
				Value(&m.values.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring, never in the config file").
				EchoMode(huh.EchoModePassword).
				Value(&m.values.password).
				Validate(validateRequired("Password")),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.values.tls),
			huh.NewInput().
				Title("Catch-all mailboxes").
				Description("Optional, comma separated").
				Placeholder("LIST-CATCHALL").
				Value(&m.values.catchAll),
		),
	).WithWidth(m.formWidth())
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case savedMsg:
		m.mode = ModeResult
		m.saved = msg.cfg
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.finish(CancelMsg{})
		}
		switch m.mode {
		case ModeValidating:
			return m, nil
		case ModeResult:
			return m.handleResultKeys(msg)
		}
	}

	if m.mode != ModeForm {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.validateAndSave())
	case huh.StateAborted:
		return m, m.finish(CancelMsg{})
	}

	return m, cmd
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		if m.err != nil {
			// Back to the form, keeping the entered values.
			m.mode = ModeForm
			m.err = nil
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, m.finish(DoneMsg{Config: m.saved})
	}
	return m, nil
}

func (m Model) finish(msg tea.Msg) tea.Cmd {
	if m.opts.QuitOnDone {
		return tea.Quit
	}
	return func() tea.Msg { return msg }
}

// Saved returns the saved configuration, or nil.
func (m Model) Saved() *model.AppConfig {
	return m.saved
}

// config applies the form values to a copy of the base configuration.
func (m Model) config() *model.AppConfig {
	cfg := *m.base
	v := m.values

	cfg.IMAP.Host = strings.TrimSpace(v.host)
	cfg.IMAP.Port, _ = strconv.Atoi(strings.TrimSpace(v.port))
	cfg.IMAP.Email = strings.TrimSpace(v.email)
	cfg.IMAP.Password = ""
	cfg.IMAP.TLS = v.tls

	cfg.Mailboxes.CatchAll = nil
	for _, name := range strings.Split(v.catchAll, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Mailboxes.CatchAll = append(cfg.Mailboxes.CatchAll, name)
		}
	}
	return &cfg
}

// validateAndSave tests the connection and, when it succeeds, writes the
// configuration and stores the password.
func (m Model) validateAndSave() tea.Cmd {
	cfg := m.config()
	password := m.values.password
	opts := m.opts

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		if err := opts.Validate(ctx, cfg.SessionConfig(password)); err != nil {
			return savedMsg{err: err}
		}
		if err := model.SaveConfig(opts.Path, cfg); err != nil {
			return savedMsg{err: err}
		}
		if opts.Credentials != nil {
			if err := opts.Credentials.Set(credential.IMAPKey(cfg.IMAP.Email), password); err != nil {
				return savedMsg{err: fmt.Errorf("saving password: %w", err)}
			}
		} else {
			// Without a keyring the password only lives for this run.
			cfg.IMAP.Password = password
		}
		return savedMsg{cfg: cfg}
	}
}

// View renders the setup UI based on the current mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	hintStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	switch m.mode {
	case ModeValidating:
		return style.Render(fmt.Sprintf("%s Testing connection...", m.spinner.View()))

	case ModeResult:
		if m.err != nil {
			errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
			return style.Render(
				errStyle.Render("Setup failed") + "\n\n" +
					m.err.Error() + "\n\n" +
					hintStyle.Render("enter/esc back to form"),
			)
		}
		okStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
		return style.Render(
			okStyle.Render("Connection successful") + "\n\n" +
				fmt.Sprintf("Configuration written to %s", m.opts.Path) + "\n\n" +
				hintStyle.Render("enter continue"),
		)

	default:
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Mailbox Setup"),
			m.form.View(),
		))
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("port is required")
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/journal"
	"github.com/nhle/mailbox-admin/internal/keys"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/mails"
	appsync "github.com/nhle/mailbox-admin/internal/sync"
	"github.com/nhle/mailbox-admin/internal/theme"
	"github.com/nhle/mailbox-admin/internal/ui"
	"github.com/nhle/mailbox-admin/internal/ui/command"
	"github.com/nhle/mailbox-admin/internal/ui/detail"
	helpview "github.com/nhle/mailbox-admin/internal/ui/help"
	"github.com/nhle/mailbox-admin/internal/ui/maillist"
	"github.com/nhle/mailbox-admin/internal/ui/prompt"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewPrompt
	ViewHelp
	ViewCommand
)

// Options holds the collaborators of the root model.
type Options struct {
	Service   mails.Service
	Resolver  *mailbox.Resolver
	Refresher *appsync.Refresher
	Journal   journal.Journal
	Account   string
	Locale    mail.Locale
	PageSize  int
	Logger    zerolog.Logger

	// Now is used for date formatting; defaults to time.Now.
	Now func() time.Time
}

// Model is the root Bubble Tea model that manages view routing, the
// mailbox tabs and access to the mailbox service.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	service   mails.Service
	resolver  *mailbox.Resolver
	refresher *appsync.Refresher
	journal   journal.Journal
	logger    zerolog.Logger
	account   string
	pageSize  int

	tabs   []mailbox.ID
	tab    int
	counts map[mailbox.ID]int

	mailList    maillist.Model
	detail      detail.Model
	prompt      prompt.Model
	helpView    helpview.Model
	commandView command.Model

	ready     bool
	status    string
	statusErr bool
	// outcome marks the status line with the result of the last action.
	outcome    mail.Outcome
	hasOutcome bool
	connErr    error
}

// New creates the root application model.
func New(opts Options) Model {
	if opts.Resolver == nil {
		opts.Resolver = mailbox.NewResolver()
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Locale.DateLayout == "" {
		opts.Locale = mail.DefaultLocale
	}
	if opts.PageSize <= 0 {
		opts.PageSize = mails.DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	k := keys.DefaultKeyMap()
	tabs := opts.Resolver.Known()

	var completions []string
	for _, id := range tabs {
		completions = append(completions, "open "+string(id))
	}

	m := Model{
		currentView: ViewList,
		keys:        k,
		service:     opts.Service,
		resolver:    opts.Resolver,
		refresher:   opts.Refresher,
		journal:     opts.Journal,
		logger:      opts.Logger.With().Str("component", "tui").Logger(),
		account:     opts.Account,
		pageSize:    opts.PageSize,
		tabs:        tabs,
		counts:      make(map[mailbox.ID]int),
		mailList:    maillist.New(k, opts.Locale, opts.Now, 80, 24),
		detail:      detail.New(k, opts.Locale, opts.Now, 80, 24),
		prompt:      prompt.New(opts.Resolver, 80, 24),
		helpView:    helpview.New(k, tabs, 80, 24),
		commandView: command.New(paletteCommands, completions, 80, 24),
	}
	m.mailList.SetLoading(true)
	return m
}

// allTab is the index of the "All" tab, after the known mailboxes.
func (m Model) allTab() int {
	return len(m.tabs)
}

// Init loads the first tab and starts the count refresher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadTab(m.tab, 1)}
	if m.refresher != nil {
		cmds = append(cmds, m.refresher.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.mailList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.prompt.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		return m.updateActiveView(msg)

	case appsync.CountsMsg:
		for id, n := range msg.Counts {
			m.counts[id] = n
		}
		if msg.ConnectionLost {
			m.connErr = msg.Error
		} else if msg.Error == nil {
			m.connErr = nil
		}
		if m.refresher == nil {
			return m, nil
		}
		return m, m.refresher.WaitForNextResult()

	case listingLoadedMsg:
		if msg.tab != m.tab {
			return m, nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			if msg.listing == nil && msg.all == nil {
				m.mailList.SetLoading(false)
				return m, nil
			}
		}
		if msg.listing != nil {
			m.counts[msg.listing.Mailbox] = msg.listing.Total
			return m, m.mailList.SetListing(msg.listing)
		}
		return m, m.mailList.SetRecords(msg.all)

	case maillist.SelectedMailMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadMail(msg.Ref)

	case detail.DetailLoadedMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
			m.currentView = ViewList
			return m, nil
		}
		if msg.Record.IsEmpty() {
			m.setStatus("Mail no longer exists")
			m.currentView = ViewList
			return m, m.reload()
		}
		m.detail.SetRecord(msg.Record)
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case maillist.MoveRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewPrompt
		return m, m.prompt.StartMove(msg.Ref)

	case maillist.DeleteRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewPrompt
		return m, m.prompt.StartDelete(msg.Refs)

	case prompt.MoveConfirmedMsg:
		m.currentView = ViewList
		m.setStatus(fmt.Sprintf("Moving %d to %s...", msg.Ref.UID, mailbox.Label(msg.To)))
		return m, m.moveMail(msg.Ref, msg.To)

	case prompt.DeleteConfirmedMsg:
		m.currentView = ViewList
		m.setStatus(fmt.Sprintf("Deleting %d mail(s)...", len(msg.Refs)))
		return m, m.deleteMails(msg.Refs)

	case prompt.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case moveDoneMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("move %d: %s: %w", msg.ref.UID, msg.outcome, msg.err))
		} else {
			m.setOutcome(msg.outcome, fmt.Sprintf("Move %d to %s: %s", msg.ref.UID, mailbox.Label(msg.to), msg.outcome))
		}
		return m, m.reload()

	case deleteDoneMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("delete: %s: %w", summarizeDelete(msg.items), msg.err))
		} else {
			m.setOutcome(worstOutcome(msg.items), "Delete: "+summarizeDelete(msg.items))
		}
		return m, m.reload()

	case maillist.PageRequestMsg:
		m.mailList.SetLoading(true)
		return m, m.loadTab(m.tab, msg.Page)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work outside of a single view.
// Prompts and the command palette receive all keys themselves.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m.quit(), true
	}
	if m.currentView == ViewPrompt {
		return nil, false
	}

	switch {
	case m.currentView == ViewCommand && key.Matches(msg, m.keys.Back):
		m.currentView = m.previousView
		return nil, true

	case m.currentView == ViewCommand:
		return nil, false

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
		m.currentView = m.previousView
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true
	}

	if m.currentView != ViewList {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh(), true

	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab((m.tab + 1) % (len(m.tabs) + 1)), true

	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab((m.tab + len(m.tabs)) % (len(m.tabs) + 1)), true
	}

	if n, err := strconv.Atoi(msg.String()); err == nil {
		switch {
		case n == 0:
			return m.switchTab(m.allTab()), true
		case n <= len(m.tabs):
			return m.switchTab(n - 1), true
		}
	}

	return nil, false
}

func (m *Model) switchTab(tab int) tea.Cmd {
	m.tab = tab
	m.status = ""
	m.mailList.SetLoading(true)
	return m.loadTab(tab, 1)
}

// reload reloads the current page of the active tab and asks the
// refresher for fresh counts.
func (m *Model) reload() tea.Cmd {
	if m.refresher != nil {
		m.refresher.Refresh()
	}
	return m.loadTab(m.tab, m.mailList.Page())
}

func (m *Model) refresh() tea.Cmd {
	m.setStatus("Refreshing...")
	return m.reload()
}

func (m *Model) quit() tea.Cmd {
	if m.refresher != nil {
		m.refresher.Stop()
	}
	return tea.Quit
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
	m.hasOutcome = false
}

func (m *Model) setOutcome(o mail.Outcome, s string) {
	m.setStatus(s)
	m.outcome = o
	m.hasOutcome = true
}

func (m *Model) setError(err error) {
	m.logger.Warn().Err(err).Msg("operation failed")
	if imap.IsConnectionError(err) {
		m.connErr = err
	}
	m.status = err.Error()
	m.statusErr = true
	m.hasOutcome = false
}

var paletteCommands = []command.Command{
	{Name: "refresh", Aliases: []string{"sync"}, Help: "reload the mailbox and the counts"},
	{Name: "open", Aliases: []string{"mailbox"}, Usage: "open <mailbox>", Help: "switch to a mailbox"},
	{Name: "all", Help: "show every mailbox at once"},
	{Name: "page", Usage: "page <n>", Help: "jump to a page of the current mailbox"},
	{Name: "quit", Aliases: []string{"q"}, Help: "leave the application"},
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	switch cmd.Name {
	case "refresh":
		return m.refresh()
	case "quit":
		return m.quit()
	case "all":
		return m.switchTab(m.allTab())
	case "open":
		if len(cmd.Args) == 0 {
			return nil
		}
		// Unknown names resolve to INBOX.
		id := m.resolver.Resolve(cmd.Args[0])
		for i, t := range m.tabs {
			if t == id {
				return m.switchTab(i)
			}
		}
		return nil
	case "page":
		if len(cmd.Args) == 0 || m.tab == m.allTab() {
			return nil
		}
		n, err := strconv.Atoi(cmd.Args[0])
		if err != nil {
			m.setError(fmt.Errorf("invalid page %q", cmd.Args[0]))
			return nil
		}
		m.mailList.SetLoading(true)
		return m.loadTab(m.tab, n)
	default:
		m.setError(fmt.Errorf("unknown command %q", cmd.Name))
		return nil
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.mailList, cmd = m.mailList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Mailbox Admin"
	if m.account != "" {
		title += " · " + m.account
	}

	header := m.layout.RenderHeader(title, m.refreshStatus())
	tabs := m.layout.RenderTabs(m.tabBar(), m.tab)
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, tabs, m.renderContent(), statusBar)
}

// tabBar builds the tab entries with their last known counts.
func (m Model) tabBar() []ui.Tab {
	tabs := make([]ui.Tab, 0, len(m.tabs)+1)
	total, complete := 0, true
	for _, id := range m.tabs {
		n, ok := m.counts[id]
		if !ok {
			n, complete = -1, false
		} else {
			total += n
		}
		tabs = append(tabs, ui.Tab{Label: mailbox.Label(id), Count: n})
	}
	if !complete {
		total = -1
	}
	return append(tabs, ui.Tab{Label: "All", Count: total})
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.mailList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewPrompt:
		return m.prompt.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// refreshStatus describes the state of the count refresher.
func (m Model) refreshStatus() string {
	if m.connErr != nil {
		return "⚠ server unreachable"
	}
	if m.refresher == nil {
		return ""
	}

	st := m.refresher.Status()
	switch st.State {
	case appsync.SyncRunning:
		return "refreshing"
	case appsync.SyncError:
		return "⚠ refresh failed"
	}
	if st.LastSync.IsZero() {
		return ""
	}
	return "updated " + st.LastSync.Format("15:04")
}

// statusLine returns the status bar text and whether it reports an error.
func (m Model) statusLine() (string, bool) {
	if m.status != "" && m.currentView == ViewList {
		if m.hasOutcome {
			return theme.OutcomeStyle(m.outcome).Render("●") + " " + m.status, false
		}
		return m.status, m.statusErr
	}
	if m.connErr != nil && m.currentView == ViewList {
		return m.connErr.Error(), true
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back", false
	case ViewCommand:
		return "enter execute | esc back", false
	case ViewDetail:
		return "esc back | m move | d delete | j/k scroll", false
	case ViewPrompt:
		return "enter confirm | esc cancel", false
	default:
		return "q quit | ? help | tab mailbox | enter open | space mark | m move | d delete | r refresh", false
	}
}

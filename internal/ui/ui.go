package ui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/services"
)

// pollInterval is how often the dashboard refreshes from the server. The
// server's read-through caches mean polling faster buys nothing.
const pollInterval = 5 * time.Second

// Model is the host dashboard: now playing, the shared queue, and playback
// controls, refreshed by polling the running partyq server.
type Model struct {
	ctx       context.Context
	api       *services.APIService
	width     int
	height    int
	playback  *models.PlaybackState
	session   sessionPayload
	queueList list.Model
	err       error
	help      help.Model
	keys      keyMap
}

type sessionPayload struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	Authenticated bool   `json:"authenticated"`
}

type queuePayload struct {
	Upstream    *models.QueueSnapshot `json:"upstream"`
	Submissions []submissionPayload   `json:"submissions"`
}

type submissionPayload struct {
	ID    string       `json:"id"`
	Guest string       `json:"guest"`
	Track models.Track `json:"track"`
	Votes int          `json:"votes"`
}

// queueItem wraps a queued track to implement [list.Item].
type queueItem struct {
	track models.Track
	guest string
	votes int
}

var _ list.Item = queueItem{}

func (i queueItem) FilterValue() string { return i.track.Title }
func (i queueItem) Title() string       { return fmt.Sprintf("%s — %s", i.track.Title, i.track.Artist) }
func (i queueItem) Description() string {
	if i.guest == "" {
		return "from Spotify queue"
	}
	return fmt.Sprintf("added by %s • %d votes", i.guest, i.votes)
}

type refreshedMsg struct {
	playback *models.PlaybackState
	queue    queuePayload
	session  sessionPayload
	err      error
}

type actionDoneMsg struct{ err error }

type tickMsg time.Time

// NewModel creates the dashboard model polling the given server client.
func NewModel(ctx context.Context, api *services.APIService) Model {
	delegate := list.NewDefaultDelegate()
	queueList := list.New([]list.Item{}, delegate, 0, 0)
	queueList.SetShowTitle(false)
	queueList.SetShowStatusBar(false)
	queueList.SetFilteringEnabled(false)
	queueList.SetShowHelp(false)

	return Model{
		ctx:       ctx,
		api:       api,
		queueList: queueList,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh fetches playback, queue, and session state from the server.
func (m Model) refresh() tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		var msg refreshedMsg

		resp, err := api.Get(ctx, "/api/playback")
		if err != nil {
			return refreshedMsg{err: err}
		}
		if resp.StatusCode == http.StatusOK {
			if err := resp.Decode(&msg.playback); err != nil {
				return refreshedMsg{err: err}
			}
		}

		resp, err = api.Get(ctx, "/api/queue")
		if err != nil {
			return refreshedMsg{err: err}
		}
		if resp.StatusCode == http.StatusOK {
			if err := resp.Decode(&msg.queue); err != nil {
				return refreshedMsg{err: err}
			}
		}

		resp, err = api.Get(ctx, "/api/session")
		if err != nil {
			return refreshedMsg{err: err}
		}
		if err := resp.Decode(&msg.session); err != nil {
			return refreshedMsg{err: err}
		}

		return msg
	}
}

// post fires a playback control request and reports the outcome.
func (m Model) post(path string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		resp, err := api.Post(ctx, path, nil)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if resp.StatusCode >= 400 {
			return actionDoneMsg{err: fmt.Errorf("server answered %d: %s", resp.StatusCode, string(resp.Body))}
		}
		return actionDoneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queueList.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case refreshedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.playback = msg.playback
		m.session = msg.session

		items := []list.Item{}
		for _, sub := range msg.queue.Submissions {
			items = append(items, queueItem{track: sub.Track, guest: sub.Guest, votes: sub.Votes})
		}
		if msg.queue.Upstream != nil {
			for _, track := range msg.queue.Upstream.Queue {
				items = append(items, queueItem{track: track})
			}
		}
		m.queueList.SetItems(items)
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh):
			return m, m.refresh()
		case key.Matches(msg, m.keys.next):
			return m, m.post("/api/playback/next")
		case key.Matches(msg, m.keys.toggle):
			if m.playback != nil && m.playback.Playing {
				return m, m.post("/api/playback/pause")
			}
			return m, m.post("/api/playback/play")
		}
	}

	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := styles.title.Render(fmt.Sprintf("partyq • %s", m.session.Name))
	if m.session.Code != "" {
		header += styles.help.Render(fmt.Sprintf("  join code %s", m.session.Code))
	}

	var status string
	switch {
	case m.err != nil:
		status = styles.err.Render(fmt.Sprintf("✗ %v", m.err))
	case !m.session.Authenticated:
		status = styles.warn.Render("⚠ Host not connected — run: partyq auth login")
	case m.playback == nil || m.playback.Track == nil:
		status = styles.help.Render("Nothing playing")
	default:
		verb := "▶"
		if !m.playback.Playing {
			verb = "⏸"
		}
		status = styles.ok.Render(fmt.Sprintf("%s %s — %s", verb, m.playback.Track.Title, m.playback.Track.Artist))
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", header, status, m.queueList.View(), m.help.View(m.keys))
}

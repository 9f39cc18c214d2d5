package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sendsmart/internal/domain"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScoreQuerier is the slice of the rate service the dashboard needs.
type ScoreQuerier interface {
	ListCorridors(ctx context.Context) ([]domain.Corridor, error)
	GetScore(ctx context.Context, from, to string) (*domain.ScoreResult, error)
}

type Services struct {
	Scores   ScoreQuerier
	Username string
}

type corridorScore struct {
	corridor domain.Corridor
	result   *domain.ScoreResult
	err      error
}

type scoresLoadedMsg []corridorScore
type loadFailedMsg struct{ err error }

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	sendStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	waitStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// AppModel is the SSH dashboard: every corridor the service knows, its
// current recommendation, and the numbers behind it.
type AppModel struct {
	svc     Services
	spinner spinner.Model
	scores  []corridorScore
	loading bool
	loadErr error
	width   int
	height  int
}

func NewAppModel(svc Services) *AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return &AppModel{svc: svc, spinner: sp, loading: true}
}

func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadScores())
}

func (m *AppModel) loadScores() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		corridors, err := svc.Scores.ListCorridors(ctx)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		out := make([]corridorScore, 0, len(corridors))
		for _, corridor := range corridors {
			result, err := svc.Scores.GetScore(ctx, corridor.From, corridor.To)
			out = append(out, corridorScore{corridor: corridor, result: result, err: err})
		}
		return scoresLoadedMsg(out)
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.loadErr = nil
			return m, tea.Batch(m.spinner.Tick, m.loadScores())
		}
	case scoresLoadedMsg:
		m.scores = msg
		m.loading = false
		return m, nil
	case loadFailedMsg:
		m.loadErr = msg.err
		m.loading = false
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AppModel) View() string {
	var sb strings.Builder

	title := "sendsmart · corridor timing"
	if m.svc.Username != "" {
		title += " · " + m.svc.Username
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")

	switch {
	case m.loading:
		sb.WriteString(fmt.Sprintf("%s scoring corridors...\n", m.spinner.View()))
	case m.loadErr != nil:
		sb.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.loadErr)))
		sb.WriteString("\n")
	case len(m.scores) == 0:
		sb.WriteString(mutedStyle.Render("no corridors with rate history"))
		sb.WriteString("\n")
	default:
		sb.WriteString(headerStyle.Render(fmt.Sprintf(
			"%-10s %-10s %-12s %-7s %-7s %-6s %s",
			"CORRIDOR", "RATE", "RECOMMEND", "SCORE", "PROB", "CONF", "TREND",
		)))
		sb.WriteString("\n")
		for _, row := range m.scores {
			sb.WriteString(m.renderRow(row))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("r refresh • q quit"))
	return sb.String()
}

func (m *AppModel) renderRow(row corridorScore) string {
	name := row.corridor.From + "/" + row.corridor.To
	if row.err != nil {
		return fmt.Sprintf("%-10s %s", name, mutedStyle.Render(shortError(row.err)))
	}
	r := row.result
	// Pad before styling so the ANSI escapes don't break the columns.
	rec := fmt.Sprintf("%-12s", r.Recommendation)
	switch r.Recommendation {
	case domain.RecommendationSendNow:
		rec = sendStyle.Render(rec)
	case domain.RecommendationWait:
		rec = waitStyle.Render(rec)
	default:
		rec = mutedStyle.Render(rec)
	}
	return fmt.Sprintf(
		"%-10s %-10.5f %s %-7.2f %-7.2f %-6.2f %s",
		name, r.CurrentRate, rec, r.TimingScore, r.ModelProb, r.Confidence, r.MarketSummary.Trend,
	)
}

func shortError(err error) string {
	msg := err.Error()
	if len(msg) > 48 {
		msg = msg[:45] + "..."
	}
	return msg
}

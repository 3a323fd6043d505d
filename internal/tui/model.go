// Package tui is the terminal play client: a bubbletea program that shows
// the revealed crest, the guesses so far and a guess prompt.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/game"
	"github.com/robalobadob/crestle/internal/store"
)

const maxSuggestions = 5

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	winStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3fb950"))
	loseStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f85149"))
)

// Model is the bubbletea model for one puzzle.
type Model struct {
	engine *game.Engine
	game   *game.Game
	sink   store.Sink // optional daily persistence
	key    string

	input   textinput.Model
	message string
	busy    bool
	width   int
	height  int
}

// fetchedMsg reports that a guess crest is cached and the guess can be scored.
type fetchedMsg struct {
	name string
	err  error
}

// New builds a model for g. sink may be nil.
func New(e *game.Engine, g *game.Game, sink store.Sink, key string) Model {
	ti := textinput.New()
	ti.Placeholder = "Team name"
	ti.CharLimit = 64
	ti.Width = 32
	ti.Focus()
	return Model{engine: e, game: g, sink: sink, key: key, input: ti, width: 80, height: 24}
}

// Game returns the puzzle being played.
func (m Model) Game() *game.Game { return m.game }

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.game.Finished() {
				return m, tea.Quit
			}
			name := strings.TrimSpace(m.input.Value())
			if name == "" || m.busy {
				return m, nil
			}
			team, err := m.engine.Resolve(m.game, name)
			if err != nil {
				m.message = fmt.Sprintf("Unknown team: %s", name)
				return m, nil
			}
			m.busy = true
			m.message = "Loading crest…"
			return m, m.fetch(name, team)
		case "tab":
			if s := m.suggestions(); len(s) > 0 {
				m.input.SetValue(s[0])
				m.input.CursorEnd()
			}
			return m, nil
		}
	case fetchedMsg:
		m.busy = false
		if msg.err != nil {
			m.message = "Could not load that crest, try another team."
			return m, nil
		}
		return m.submit(msg.name)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// fetch loads the crest off the UI loop; scoring happens back in Update.
func (m Model) fetch(name string, team catalog.Team) tea.Cmd {
	return func() tea.Msg {
		return fetchedMsg{name: name, err: m.engine.Prefetch(context.Background(), team)}
	}
}

func (m Model) submit(name string) (tea.Model, tea.Cmd) {
	res, err := m.engine.SubmitGuess(context.Background(), m.game, name)
	switch {
	case errors.Is(err, game.ErrUnknownEntity):
		m.message = fmt.Sprintf("Unknown team: %s", name)
		return m, nil
	case err != nil:
		m.message = err.Error()
		return m, nil
	}
	m.input.SetValue("")
	if m.sink != nil && m.game.Mode == game.ModeDaily {
		store.Persist(context.Background(), m.sink, m.key, m.game.Snapshot())
	}

	switch res.Status {
	case game.StatusWon:
		m.message = winStyle.Render(fmt.Sprintf("Solved in %d! It was %s.", len(m.game.Guesses), m.engine.DisplayName(m.game.Target)))
	case game.StatusLost:
		m.message = loseStyle.Render(fmt.Sprintf("Out of guesses. It was %s.", m.engine.DisplayName(m.game.Target)))
	default:
		m.message = fmt.Sprintf("%s: %.1f%% revealed", res.Guess.Name, res.Guess.HitPct)
	}
	return m, nil
}

// suggestions lists guess-pool names containing the current input.
func (m Model) suggestions() []string {
	q := strings.ToLower(strings.TrimSpace(m.input.Value()))
	if q == "" {
		return nil
	}
	var out []string
	for _, t := range m.engine.Catalog().GuessPool(m.game.League) {
		name := m.engine.DisplayName(t)
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Crestle — " + catalog.LeagueLabel(m.game.League)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %d/%d", m.game.Date, len(m.game.Guesses), m.game.MaxGuesses)))
	b.WriteString("\n\n")

	if img, err := m.game.Revealed(); err == nil {
		rows := max(4, m.height-12-m.game.MaxGuesses)
		b.WriteString(Render(img, min(m.width, 2*rows), rows))
	}
	b.WriteByte('\n')

	for i, g := range m.game.Guesses {
		fmt.Fprintf(&b, "%d. %-32s %5.1f%%\n", i+1, g.Name, g.HitPct)
	}
	b.WriteByte('\n')

	if m.game.Finished() {
		b.WriteString(m.message + "\n\n")
		b.WriteString(m.game.ShareText() + "\n\n")
		b.WriteString(dimStyle.Render("enter to quit"))
		return b.String()
	}

	b.WriteString(m.input.View() + "\n")
	if s := m.suggestions(); len(s) > 0 {
		b.WriteString(dimStyle.Render(strings.Join(s, " · ")) + "\n")
	}
	if m.message != "" {
		b.WriteString(m.message + "\n")
	}
	b.WriteString(dimStyle.Render("tab complete · enter guess · esc quit"))
	return b.String()
}

// Run plays g interactively and returns the final game.
func Run(e *game.Engine, g *game.Game, sink store.Sink, key string) (*game.Game, error) {
	final, err := tea.NewProgram(New(e, g, sink, key), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(Model).Game(), nil
}

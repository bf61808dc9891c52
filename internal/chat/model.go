// Package chat is the interactive terminal front end: type a question, read
// the answer, repeat until quit.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/courtside/internal/rag"
)

const (
	historySize   = 30
	transcriptMax = 20
)

// Answerer produces a detailed answer. *rag.Pipeline implements it.
type Answerer interface {
	AnswerDetailed(ctx context.Context, question string) rag.Answer
}

// Exchange is one question and its answer.
type Exchange struct {
	Question string
	Answer   string
	Sources  []string
	TopScore float64
	Degraded bool
	Fallback bool
	Elapsed  time.Duration
}

// Model is the bubbletea chat model.
type Model struct {
	ctx      context.Context
	answerer Answerer

	input      textinput.Model
	spinner    spinner.Model
	relevance  progress.Model
	transcript []Exchange
	scores     []float64

	pending  string
	started  time.Time
	quitting bool
}

type answerMsg struct {
	question string
	answer   rag.Answer
	elapsed  time.Duration
}

// NewModel creates a chat model that asks answerer.
func NewModel(ctx context.Context, answerer Answerer) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a basketball question"
	ti.Prompt = "› "
	ti.CharLimit = 2000
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		answerer: answerer,
		input:    ti,
		spinner:  sp,
		relevance: progress.New(
			progress.WithGradient("#ff5f00", "#00ff87"),
			progress.WithWidth(30),
		),
		scores: make([]float64, 0, historySize),
	}
}

// Transcript returns the exchanges so far, oldest first.
func (m Model) Transcript() []Exchange {
	return m.transcript
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// isQuitCommand matches the words that end a session.
func isQuitCommand(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

func (m Model) ask(question string) tea.Cmd {
	ctx, answerer := m.ctx, m.answerer
	return func() tea.Msg {
		start := time.Now()
		a := answerer.AnswerDetailed(ctx, question)
		return answerMsg{question: question, answer: a, elapsed: time.Since(start)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.pending != "" {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			if isQuitCommand(question) {
				m.quitting = true
				return m, tea.Quit
			}
			m.input.Reset()
			m.pending = question
			m.started = time.Now()
			return m, tea.Batch(m.spinner.Tick, m.ask(question))
		}

	case answerMsg:
		m.pending = ""
		m.transcript = appendExchange(m.transcript, newExchange(msg))
		m.scores = appendToHistory(m.scores, topScore(msg.answer.Context))
		return m, nil

	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func newExchange(msg answerMsg) Exchange {
	text := msg.answer.Text
	if text == "" {
		text = rag.EmptyAnswerMessage
	}
	sources := make([]string, len(msg.answer.Context))
	for i, it := range msg.answer.Context {
		sources[i] = it.Title
	}
	return Exchange{
		Question: msg.question,
		Answer:   text,
		Sources:  sources,
		TopScore: topScore(msg.answer.Context),
		Degraded: msg.answer.Degraded(),
		Fallback: msg.answer.Fallback,
		Elapsed:  msg.elapsed,
	}
}

func topScore(items []rag.ContextItem) float64 {
	if len(items) == 0 {
		return 0
	}
	return float64(items[0].Score)
}

func appendExchange(t []Exchange, e Exchange) []Exchange {
	t = append(t, e)
	if len(t) > transcriptMax {
		t = t[len(t)-transcriptMax:]
	}
	return t
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// Run starts an interactive session on the terminal and blocks until the
// user quits or ctx is canceled.
func Run(ctx context.Context, answerer Answerer, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(NewModel(ctx, answerer), opts...).Run()
	return err
}

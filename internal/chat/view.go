package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("208")).
			Bold(true).
			Padding(0, 1)

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true)

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)
)

// View renders the chat.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(" courtside: basketball Q&A ") + "\n")

	if len(m.transcript) == 0 {
		b.WriteString("\n" + dimStyle.Render("Ask about rules, scoring, game duration or player positions.") + "\n")
	}
	for _, ex := range m.transcript {
		b.WriteString("\n" + renderExchange(ex))
	}

	if m.pending != "" {
		b.WriteString("\n" + questionStyle.Render("Q: "+m.pending) + "\n")
		b.WriteString(m.spinner.View() + dimStyle.Render(" thinking...") + "\n")
	}

	b.WriteString("\n" + m.renderRelevance())
	b.WriteString("\n" + m.input.View() + "\n")

	footer := footerKeyStyle.Render("[enter]") + footerStyle.Render(" ask  ") +
		footerKeyStyle.Render("[esc]") + footerStyle.Render(" quit  ") +
		footerStyle.Render("or type quit / exit / q")
	b.WriteString(footer)

	return containerStyle.Render(b.String())
}

func renderExchange(ex Exchange) string {
	var b strings.Builder
	b.WriteString(questionStyle.Render("Q: "+ex.Question) + "\n")
	b.WriteString(answerStyle.Render("A: "+ex.Answer) + "\n")

	meta := dimStyle.Render(FormatElapsed(ex.Elapsed))
	if len(ex.Sources) > 0 {
		meta += dimStyle.Render("  sources: " + strings.Join(ex.Sources, ", "))
	}
	b.WriteString(meta + "\n")

	if ex.Degraded {
		b.WriteString(warningStyle.Render("⚠ knowledge base unavailable, answered without context") + "\n")
	}
	if ex.Fallback {
		b.WriteString(warningStyle.Render("⚠ model unavailable") + "\n")
	}
	return b.String()
}

func (m Model) renderRelevance() string {
	last := 0.0
	if n := len(m.scores); n > 0 {
		last = m.scores[n-1]
	}
	return dimStyle.Render("Relevance ") +
		m.relevance.ViewAs(clamp01(last)) + " " +
		dimStyle.Render(FormatScore(last)) + "   " +
		createSparkline(m.scores) + "\n"
}

// createSparkline draws the top-match score of each answered question.
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FormatScore formats a similarity score as "0.000".
func FormatScore(score float64) string {
	return fmt.Sprintf("%.3f", score)
}

// FormatElapsed formats a duration as "Xms" or "X.Xs".
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

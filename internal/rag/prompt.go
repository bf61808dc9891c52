// Package rag answers basketball questions by retrieving related knowledge
// from the vector index and prompting a text generator with it.
//
// The Retriever turns a question into context items and never fails; an
// unreachable index yields no context. The Pipeline assembles the prompt,
// calls the generator and strips any echo of the prompt from the output. It
// also owns ingestion of the knowledge corpus into the index.
package rag

import "strings"

const (
	promptPrefix   = "You are a basketball expert. Use this context to answer: "
	promptQuestion = "\n\nQuestion: "
	promptSuffix   = "\n\nAnswer:"

	contextSeparator = "\n\n"
)

// EmptyAnswerMessage is shown by callers when the pipeline answers with an
// empty string.
const EmptyAnswerMessage = "I'm sorry, but I'm currently unable to process your request. Please check your configuration and try again."

// ContextItem is one retrieved passage.
type ContextItem struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// Text formats the item as "{title}: {content}".
func (c ContextItem) Text() string {
	return c.Title + ": " + c.Content
}

// BuildContext joins items in order, separated by a blank line.
func BuildContext(items []ContextItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Text()
	}
	return strings.Join(parts, contextSeparator)
}

// BuildPrompt fills the answer template. Substitution is literal, so braces
// in either argument are kept as typed.
func BuildPrompt(context, question string) string {
	var b strings.Builder
	b.Grow(len(promptPrefix) + len(context) + len(promptQuestion) + len(question) + len(promptSuffix))
	b.WriteString(promptPrefix)
	b.WriteString(context)
	b.WriteString(promptQuestion)
	b.WriteString(question)
	b.WriteString(promptSuffix)
	return b.String()
}

// StripEcho removes every occurrence of prompt from raw and trims the result.
func StripEcho(raw, prompt string) string {
	if prompt != "" {
		raw = strings.ReplaceAll(raw, prompt, "")
	}
	return strings.TrimSpace(raw)
}

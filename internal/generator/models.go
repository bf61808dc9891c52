package generator

import (
	"fmt"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewModel builds the langchaingo model selected by cfg.Provider. No request
// is made; a missing token or malformed URL fails here.
func NewModel(cfg config.GenerationConfig) (llms.Model, error) {
	switch cfg.Provider {
	case config.GenerationHuggingFace, "":
		opts := []huggingface.Option{huggingface.WithModel(cfg.Model)}
		if cfg.APIToken.IsSet() {
			opts = append(opts, huggingface.WithToken(cfg.APIToken.Value()))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, huggingface.WithURL(cfg.BaseURL))
		}
		llm, err := huggingface.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: huggingface: %v", ErrModelLoad, err)
		}
		return llm, nil

	case config.GenerationOpenAI:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIToken.IsSet() {
			opts = append(opts, openai.WithToken(cfg.APIToken.Value()))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: openai: %v", ErrModelLoad, err)
		}
		return llm, nil

	case config.GenerationOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: ollama: %v", ErrModelLoad, err)
		}
		return llm, nil

	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", ErrModelLoad, cfg.Provider)
	}
}

package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/fyrsmithlabs/courtside/internal/logging"
	"github.com/fyrsmithlabs/courtside/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap/zapcore"
)

// fakeModel is an llms.Model that echoes its prompt followed by reply.
type fakeModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	prompts []string
	opts    llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range options {
		o(&f.opts)
	}

	var prompt string
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				prompt += tc.Text
			}
		}
	}
	f.prompts = append(f.prompts, prompt)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: prompt + f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testConfig() config.GenerationConfig {
	cfg := config.DefaultGenerationConfig()
	cfg.RateLimit, cfg.Burst = 1000, 100
	return cfg
}

func TestComplete(t *testing.T) {
	model := &fakeModel{reply: " Three points."}
	g, err := New(testConfig(), model, nil)
	require.NoError(t, err)

	out := g.Complete(context.Background(), "Question: three?")
	assert.Equal(t, "Question: three? Three points.", out)
	require.Len(t, model.prompts, 1)
	assert.Equal(t, "Question: three?", model.prompts[0])

	assert.Equal(t, 512, model.opts.MaxLength)
	assert.InDelta(t, 0.7, model.opts.Temperature, 1e-9)
	assert.InDelta(t, 0.9, model.opts.TopP, 1e-9)
}

func TestComplete_UsesConfiguredParameters(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLength = 128
	cfg.Temperature = 0.2
	cfg.TopP = 0.5

	model := &fakeModel{reply: "ok"}
	g, err := New(cfg, model, nil)
	require.NoError(t, err)
	g.Complete(context.Background(), "p")

	assert.Equal(t, 128, model.opts.MaxLength)
	assert.InDelta(t, 0.2, model.opts.Temperature, 1e-9)
	assert.InDelta(t, 0.5, model.opts.TopP, 1e-9)
}

func TestComplete_ZeroTemperature(t *testing.T) {
	cfg := testConfig()
	cfg.Temperature = 0

	model := &fakeModel{reply: "ok"}
	g, err := New(cfg, model, nil)
	require.NoError(t, err)
	g.Complete(context.Background(), "p")

	assert.Zero(t, model.opts.Temperature)
}

func TestComplete_FallbackOnError(t *testing.T) {
	log := logging.NewTestLogger()
	model := &fakeModel{err: errors.New("503 model is loading")}
	g, err := New(testConfig(), model, log.Underlying())
	require.NoError(t, err)

	res := g.CompleteResult(context.Background(), "prompt")
	assert.Equal(t, FallbackMessage, res.Text)
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, ErrGenerationFailed)
	assert.Contains(t, res.Err.Error(), "model is loading")

	assert.Equal(t, FallbackMessage, g.Complete(context.Background(), "prompt"))
	log.AssertLogged(t, zapcore.WarnLevel, "returning fallback")
}

func TestComplete_FallbackOnTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = config.Duration(20 * time.Millisecond)

	g, err := New(cfg, &fakeModel{delay: time.Second}, nil)
	require.NoError(t, err)

	res := g.CompleteResult(context.Background(), "prompt")
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestComplete_FallbackOnCanceledContext(t *testing.T) {
	g, err := New(testConfig(), &fakeModel{reply: "never"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := g.CompleteResult(ctx, "prompt")
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackMessage, res.Text)
}

func TestComplete_Telemetry(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	tel.Install(t)

	g, err := New(testConfig(), &fakeModel{err: errors.New("down")}, nil)
	require.NoError(t, err)
	g.Complete(context.Background(), "prompt")

	tel.AssertSpanExists(t, "Generator.Complete")
	assert.True(t, tel.HasMetric(context.Background(), "courtside.generation.duration_seconds"))
	assert.True(t, tel.HasMetric(context.Background(), "courtside.generation.fallbacks_total"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(testConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrModelLoad)

	cfg := testConfig()
	cfg.TopP = 1.5
	_, err = New(cfg, &fakeModel{}, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewModel(t *testing.T) {
	t.Run("huggingface with token", func(t *testing.T) {
		cfg := testConfig()
		cfg.APIToken = config.Secret("hf_test")
		m, err := NewModel(cfg)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})

	t.Run("ollama", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider = config.GenerationOllama
		cfg.Model = "llama3"
		cfg.BaseURL = "http://localhost:11434"
		m, err := NewModel(cfg)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})

	t.Run("openai with token", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider = config.GenerationOpenAI
		cfg.Model = "gpt-4o-mini"
		cfg.APIToken = config.Secret("sk-test")
		m, err := NewModel(cfg)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider = "gpt2-local"
		_, err := NewModel(cfg)
		assert.ErrorIs(t, err, ErrModelLoad)
	})
}

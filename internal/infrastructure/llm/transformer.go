package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"NewsFlow/internal/config"
	"NewsFlow/internal/domain"
	"NewsFlow/internal/ports"
)

const (
	translateSystem = "You are a helpful assistant that translates English to Japanese."
	summarySystem   = "You are a helpful assistant that summarizes Japanese text in the most important 3 bullet points."
)

// Transformer translates extracted article text to Japanese and produces a
// three-bullet summary of the translation. Oversized inputs are handled per
// the configured overflow policy before the backend sees them.
type Transformer struct {
	model         llms.Model
	maxInputChars int
	onOverflow    string
	logger        *slog.Logger
}

var _ ports.Transformer = (*Transformer)(nil)

// New builds a Transformer over an OpenAI-compatible backend.
func New(cfg config.TransformConfig, logger *slog.Logger) (*Transformer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transform api key is not configured")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create transform backend: %w", err)
	}

	return NewWithModel(model, cfg, logger), nil
}

// NewWithModel wires an existing backend; used by tests.
func NewWithModel(model llms.Model, cfg config.TransformConfig, logger *slog.Logger) *Transformer {
	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = 12000
	}
	overflow := cfg.OnOverflow
	if overflow != config.OverflowChunk {
		overflow = config.OverflowTruncate
	}
	return &Transformer{
		model:         model,
		maxInputChars: maxChars,
		onOverflow:    overflow,
		logger:        logger,
	}
}

// Transform translates text and summarizes the translation. Any backend
// failure surfaces as a transform error.
func (t *Transformer) Transform(ctx context.Context, text string) (string, string, error) {
	chunks := t.split(text)

	translatedParts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out, err := t.generate(ctx, translateSystem,
			"Translate the following English text to Japanese:\n\n"+chunk)
		if err != nil {
			return "", "", domain.NewStageError(domain.KindTransform, "translate", err)
		}
		translatedParts = append(translatedParts, strings.TrimSpace(out))
	}
	translated := strings.Join(translatedParts, "\n")

	summary, err := t.generate(ctx, summarySystem,
		"以下の日本語テキストの最も重要な3つのポイントを箇条書きで簡潔に要約してください：\n\n"+translated)
	if err != nil {
		return "", "", domain.NewStageError(domain.KindTransform, "summarize", err)
	}

	return translated, formatSummary(summary), nil
}

func (t *Transformer) generate(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := t.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Content, nil
}

// split applies the overflow policy: inputs within the limit pass through
// untouched, truncate cuts at the limit, chunk produces word-bounded pieces.
func (t *Transformer) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= t.maxInputChars {
		return []string{text}
	}

	if t.onOverflow == config.OverflowTruncate {
		t.debug("input truncated", "original_len", len(runes), "max", t.maxInputChars)
		return []string{string(runes[:t.maxInputChars])}
	}

	var (
		chunks  []string
		current []string
		length  int
	)
	for _, word := range strings.Fields(text) {
		wordLen := len([]rune(word)) + 1
		if length+wordLen > t.maxInputChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}
		current = append(current, word)
		length += wordLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	t.debug("input chunked", "original_len", len(runes), "chunks", len(chunks))
	return chunks
}

// formatSummary normalizes bullet markers so every line renders as "- ...".
func formatSummary(summary string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(summary), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, "- "+strings.TrimLeft(line, "•-* "))
	}
	return strings.Join(lines, "\n")
}

func (t *Transformer) debug(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Debug(msg, args...)
	}
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"NewsFlow/internal/config"
	"NewsFlow/internal/domain"
)

// fakeModel echoes inputs so tests can observe what the backend received.
type fakeModel struct {
	calls  []string
	reply  func(prompt string) string
	broken bool
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.broken {
		return nil, fmt.Errorf("backend down")
	}

	var prompt string
	for _, msg := range messages {
		if msg.Role != llms.ChatMessageTypeHuman {
			continue
		}
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	f.calls = append(f.calls, prompt)

	reply := "翻訳済み: " + prompt
	if f.reply != nil {
		reply = f.reply(prompt)
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestTransformSuccess(t *testing.T) {
	t.Parallel()

	model := &fakeModel{reply: func(prompt string) string {
		if strings.Contains(prompt, "箇条書き") {
			return "• 第一のポイント\n- 第二のポイント\n第三のポイント"
		}
		return "翻訳されたテキスト"
	}}
	tr := NewWithModel(model, config.TransformConfig{MaxInputChars: 100}, nil)

	translated, summary, err := tr.Transform(context.Background(), "Amazon EC2 now supports this.")
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if translated != "翻訳されたテキスト" {
		t.Fatalf("unexpected translation: %q", translated)
	}
	want := "- 第一のポイント\n- 第二のポイント\n- 第三のポイント"
	if summary != want {
		t.Fatalf("unexpected summary: %q", summary)
	}
	// one translate call plus one summary call
	if len(model.calls) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(model.calls))
	}
}

func TestTransformTruncates(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	tr := NewWithModel(model, config.TransformConfig{MaxInputChars: 50, OnOverflow: config.OverflowTruncate}, nil)

	long := strings.Repeat("word ", 100)
	if _, _, err := tr.Transform(context.Background(), long); err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	// translate call is first; its payload must not exceed prompt + limit
	payload := strings.TrimPrefix(model.calls[0], "Translate the following English text to Japanese:\n\n")
	if len([]rune(payload)) > 50 {
		t.Fatalf("input not truncated: %d chars", len([]rune(payload)))
	}
}

func TestTransformChunks(t *testing.T) {
	t.Parallel()

	model := &fakeModel{reply: func(string) string { return "部分" }}
	tr := NewWithModel(model, config.TransformConfig{MaxInputChars: 30, OnOverflow: config.OverflowChunk}, nil)

	long := strings.Repeat("alpha beta ", 20)
	translated, _, err := tr.Transform(context.Background(), long)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	// several translate calls plus the final summary call
	if len(model.calls) < 3 {
		t.Fatalf("expected chunked translate calls, got %d", len(model.calls))
	}
	if !strings.Contains(translated, "部分\n部分") {
		t.Fatalf("chunk translations not concatenated: %q", translated)
	}
}

func TestTransformBackendFailure(t *testing.T) {
	t.Parallel()

	tr := NewWithModel(&fakeModel{broken: true}, config.TransformConfig{}, nil)

	_, _, err := tr.Transform(context.Background(), "text")
	if domain.KindOf(err) != domain.KindTransform {
		t.Fatalf("expected transform_error, got %v", err)
	}
}

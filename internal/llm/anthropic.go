package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// AnthropicConfig configures the AnthropicProvider.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

// AnthropicProvider implements StreamingProvider using the Anthropic Messages API.
// The Messages API has no system role, so system messages are joined into the
// request's system prompt in order.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

var _ StreamingProvider = (*AnthropicProvider)(nil)

// NewAnthropicProvider constructs an Anthropic-backed provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key must be provided")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic model must be provided")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Name implements StreamingProvider.
func (p *AnthropicProvider) Name() string { return "anthropic/" + p.model }

// StreamChat opens a streaming message request. The first event is read
// eagerly so that request errors are reported here rather than mid-stream.
func (p *AnthropicProvider) StreamChat(ctx context.Context, messages []ChatMessage) (ChatStream, error) {
	var system []string
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(params.Messages) == 0 {
		// A conversation made only of system messages is valid for chat
		// completions. The Messages API needs a user turn, so the last system
		// message becomes it.
		if len(system) == 0 {
			return nil, errors.New("at least one message must be provided")
		}
		last := system[len(system)-1]
		system = system[:len(system)-1]
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(last)))
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	s := &anthropicStream{stream: stream}
	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err == nil {
			err = errors.New("stream ended before the first event")
		}
		return nil, fmt.Errorf("anthropic stream request: %w", err)
	}
	s.primed = true
	return s, nil
}

type anthropicStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	primed bool // Current() already holds an unread event
}

func (s *anthropicStream) Recv() (string, error) {
	for {
		if s.primed {
			s.primed = false
		} else if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return "", fmt.Errorf("anthropic stream read: %w", err)
			}
			return "", io.EOF
		}

		event := s.stream.Current()
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
				return text.Text, nil
			}
		}
	}
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAIProvider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // optional, e.g. an OpenAI-compatible gateway
	Model      string
	HTTPClient *http.Client
}

// OpenAIProvider implements StreamingProvider using OpenAI's Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

var _ StreamingProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider constructs an OpenAI-backed provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key must be provided")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model must be provided")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}, nil
}

// Name implements StreamingProvider.
func (p *OpenAIProvider) Name() string { return "openai/" + p.model }

// StreamChat opens a streaming chat completion.
func (p *OpenAIProvider) StreamChat(ctx context.Context, messages []ChatMessage) (ChatStream, error) {
	if len(messages) == 0 {
		return nil, errors.New("at least one message must be provided")
	}

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
		Stream:   true,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai stream request: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("openai stream read: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

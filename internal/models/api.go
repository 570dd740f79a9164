package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// --- Conversation ---

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles accepted on the wire.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message represents a single message in a conversation.
// It only lives for the duration of one request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// --- Request Structs ---

var (
	ErrEmptyBody   = errors.New("request body is empty")
	ErrInvalidRole = errors.New("invalid message role")
)

// ChatRequest is the decoded body of POST /api/chat.
//
// Two wire forms are accepted. The legacy form is a bare JSON array of
// messages where the first "system" message carries the page URL in its
// content. The explicit form is an object with a dedicated "url" field.
type ChatRequest struct {
	URL      string    `json:"url"`
	Messages []Message `json:"messages"`
}

// DecodeChatRequest parses either wire form of a chat request body.
func DecodeChatRequest(body []byte) (*ChatRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}

	req := &ChatRequest{}
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &req.Messages); err != nil {
			return nil, fmt.Errorf("invalid message list: %w", err)
		}
		req.URL = firstSystemContent(req.Messages)
	case '{':
		if err := json.Unmarshal(trimmed, req); err != nil {
			return nil, fmt.Errorf("invalid chat request object: %w", err)
		}
		if req.URL == "" {
			req.URL = firstSystemContent(req.Messages)
		}
	default:
		return nil, fmt.Errorf("invalid chat request: expected JSON array or object")
	}

	for i, msg := range req.Messages {
		if !msg.Role.Valid() {
			return nil, fmt.Errorf("%w %q at index %d", ErrInvalidRole, msg.Role, i)
		}
	}

	return req, nil
}

// firstSystemContent returns the content of the first system-role message.
func firstSystemContent(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			return msg.Content
		}
	}
	return ""
}

// ConversationMessages returns the messages with every system-role entry removed,
// preserving order.
func (r *ChatRequest) ConversationMessages() []Message {
	out := make([]Message, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role == RoleSystem {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// --- Response Structs ---

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RelayRecordResponse is the API view of a stored relay record.
type RelayRecordResponse struct {
	ID           uuid.UUID `json:"id"`
	PageURL      string    `json:"page_url,omitempty"`
	ScrapeStatus string    `json:"scrape_status"`
	FinalState   string    `json:"final_state"`
	Chunks       int       `json:"chunks"`
	Bytes        int64     `json:"bytes"`
	Error        string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListRelaysResponse wraps a page of relay records.
type ListRelaysResponse struct {
	Relays []RelayRecordResponse `json:"relays"`
}

// TranslationsResponse is returned by GET /api/i18n/{lang}.
type TranslationsResponse struct {
	Language     string            `json:"language"`
	Translations map[string]string `json:"translations"`
}

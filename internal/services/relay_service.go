package services

import (
	"anywebsupport-backend/internal/llm"
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/scrape"
	"anywebsupport-backend/internal/store"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
)

// SystemPrompt is the fixed instruction sent ahead of every conversation.
const SystemPrompt = `
You are AnyWebSupport AI, an AI-powered customer service assistant. Your primary role is to provide accurate, helpful, and friendly responses to questions based on the content of the provided webpage. Use the information scraped from the webpage to answer queries as if you are an expert on the content. If the user asks about something not covered by the page, respond politely and inform them that you can only provide answers based on the information available from the given webpage.

Guidelines:
1. Always base your responses on the content from the webpage to the best of your ability.
2. If the information is not available on the webpage, politely inform the user.
3. Avoid discussing topics unrelated to the content of the page.
4. Maintain clarity, conciseness, and professionalism in all your responses.
5. If a user asks who created you, reply: "I was created by Daivya Shah, a student at New York University. You can learn more by visiting his website at https://daivyashah.com or by clicking the 'Contact Me' button on the Home Page."
`

// PageContentPrefix precedes the extracted page text in the second system message.
const PageContentPrefix = "Webpage content:\n"

// Custom errors for the relay service
var (
	ErrProviderUnavailable = errors.New("completion provider unavailable")
	ErrStreamInterrupted   = errors.New("completion stream interrupted")
	ErrClientWrite         = errors.New("failed to write to client")
)

// RelayState is a step of the per-request relay lifecycle.
type RelayState string

const (
	StateIdle             RelayState = "idle"
	StateExtractingPage   RelayState = "extracting_page"
	StateComposingRequest RelayState = "composing_request"
	StateStreaming        RelayState = "streaming"
	StateClosed           RelayState = "closed"
	StateErrored          RelayState = "errored"
)

// ChunkWriter receives completion deltas. Flush pushes buffered bytes to the client.
type ChunkWriter interface {
	io.Writer
	Flush() error
}

// DefaultScrapeTimeout bounds page extraction unless WithScrapeTimeout says otherwise.
const DefaultScrapeTimeout = 30 * time.Second

// RelayService scrapes the requested page and relays a streamed completion.
type RelayService struct {
	extractor     scrape.Extractor
	provider      llm.StreamingProvider
	store         store.Store
	scrapeTimeout time.Duration
	now           func() time.Time
}

// RelayOption configures a RelayService.
type RelayOption func(*RelayService)

// WithScrapeTimeout sets how long extraction may run before the sentinel is
// used. It must leave room in the request deadline for the completion.
func WithScrapeTimeout(d time.Duration) RelayOption {
	return func(s *RelayService) {
		if d > 0 {
			s.scrapeTimeout = d
		}
	}
}

// NewRelayService creates a new RelayService.
func NewRelayService(extractor scrape.Extractor, provider llm.StreamingProvider, s store.Store, opts ...RelayOption) *RelayService {
	if s == nil {
		s = store.NoopStore{}
	}
	svc := &RelayService{
		extractor:     extractor,
		provider:      provider,
		store:         s,
		scrapeTimeout: DefaultScrapeTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ComposeMessages builds the outbound list: the fixed prompt, the page
// content, then the conversation without any system-role entries.
func ComposeMessages(pageText string, conversation []models.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(conversation)+2)
	out = append(out,
		llm.ChatMessage{Role: string(models.RoleSystem), Content: SystemPrompt},
		llm.ChatMessage{Role: string(models.RoleSystem), Content: PageContentPrefix + pageText},
	)
	for _, msg := range conversation {
		if msg.Role == models.RoleSystem {
			continue
		}
		out = append(out, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// relayRun tracks one request through the state machine.
type relayRun struct {
	rec   models.RelayRecord
	state RelayState
}

func (r *relayRun) transition(to RelayState) {
	log.Printf("[RelayService] Relay %s: %s -> %s", r.rec.ID, r.state, to)
	r.state = to
}

// Relay runs one request end to end and writes every delta to out as it arrives.
//
// A returned error wrapping ErrProviderUnavailable means nothing was written.
// ErrStreamInterrupted and ErrClientWrite may follow partial output; the
// returned record reports how many bytes went out.
func (s *RelayService) Relay(ctx context.Context, relayID uuid.UUID, req *models.ChatRequest, out ChunkWriter) (*models.RelayRecord, error) {
	started := s.now()
	run := &relayRun{
		rec: models.RelayRecord{
			ID:        relayID,
			PageURL:   req.URL,
			CreatedAt: started.UTC(),
		},
		state: StateIdle,
	}

	err := s.relay(ctx, run, req, out)
	if err != nil {
		run.rec.Error = err.Error()
		run.transition(StateErrored)
	} else {
		run.transition(StateClosed)
	}
	run.rec.FinalState = string(run.state)
	run.rec.Duration = s.now().Sub(started)

	s.record(ctx, run.rec)
	return &run.rec, err
}

func (s *RelayService) relay(ctx context.Context, run *relayRun, req *models.ChatRequest, out ChunkWriter) error {
	run.transition(StateExtractingPage)
	// A hanging page must not use up the deadline the completion needs.
	scrapeCtx, cancelScrape := context.WithTimeout(ctx, s.scrapeTimeout)
	page := scrape.Fetch(scrapeCtx, s.extractor, req.URL)
	cancelScrape()
	run.rec.ScrapeStatus = page.Status

	run.transition(StateComposingRequest)
	messages := ComposeMessages(page.Text, req.ConversationMessages())

	stream, err := s.provider.StreamChat(ctx, messages)
	if err != nil {
		log.Printf("ERROR [RelayService] Relay %s: provider %s failed to open stream: %v", run.rec.ID, s.provider.Name(), err)
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.Printf("WARN [RelayService] Relay %s: closing stream: %v", run.rec.ID, cerr)
		}
	}()

	run.transition(StateStreaming)
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Printf("ERROR [RelayService] Relay %s: stream failed after %d chunks: %v", run.rec.ID, run.rec.Chunks, err)
			return fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
		}
		if delta == "" {
			continue
		}

		n, err := io.WriteString(out, delta)
		run.rec.Bytes += int64(n)
		if err == nil {
			err = out.Flush()
		}
		if err != nil {
			log.Printf("ERROR [RelayService] Relay %s: client write failed: %v", run.rec.ID, err)
			return fmt.Errorf("%w: %v", ErrClientWrite, err)
		}
		run.rec.Chunks++
	}
}

// record persists the audit row. Failures are logged and never reach the caller.
func (s *RelayService) record(ctx context.Context, rec models.RelayRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.store.RecordRelay(ctx, rec); err != nil {
		log.Printf("ERROR [RelayService] Failed to record relay %s: %v", rec.ID, err)
	}
}

package services

import (
	"anywebsupport-backend/internal/llm"
	"anywebsupport-backend/internal/models"
	"anywebsupport-backend/internal/scrape"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// --- Stubs ---

type stubExtractor struct {
	text   string
	err    error
	calls  int
	gotURL string
}

func (e *stubExtractor) Extract(_ context.Context, pageURL string) (string, error) {
	e.calls++
	e.gotURL = pageURL
	return e.text, e.err
}

type stubStream struct {
	deltas []string
	err    error // returned after deltas instead of io.EOF
	pos    int
	closed int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos < len(s.deltas) {
		d := s.deltas[s.pos]
		s.pos++
		return d, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *stubStream) Close() error {
	s.closed++
	return nil
}

type stubProvider struct {
	stream  *stubStream
	openErr error
	got     []llm.ChatMessage
}

func (p *stubProvider) StreamChat(ctx context.Context, messages []llm.ChatMessage) (llm.ChatStream, error) {
	p.got = messages
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.stream, nil
}

func (p *stubProvider) Name() string { return "stub" }

type recordingWriter struct {
	bytes.Buffer
	flushes  int
	writeErr error
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return w.Buffer.Write(p)
}

func (w *recordingWriter) Flush() error {
	w.flushes++
	return nil
}

type memStore struct {
	mu      sync.Mutex
	records []models.RelayRecord
}

func (m *memStore) RecordRelay(_ context.Context, rec models.RelayRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) GetRelay(context.Context, uuid.UUID) (*models.RelayRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) ListRecentRelays(context.Context, int) ([]models.RelayRecord, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func newTestService(ex *stubExtractor, p *stubProvider) (*RelayService, *memStore) {
	st := &memStore{}
	return NewRelayService(ex, p, st), st
}

func legacyRequest(t *testing.T, body string) *models.ChatRequest {
	t.Helper()
	req, err := models.DecodeChatRequest([]byte(body))
	if err != nil {
		t.Fatalf("DecodeChatRequest: %v", err)
	}
	return req
}

// --- Tests ---

func TestComposeMessages(t *testing.T) {
	got := ComposeMessages("Example Domain", []models.Message{
		{Role: models.RoleSystem, Content: "https://example.com"},
		{Role: models.RoleUser, Content: "What is this?"},
		{Role: models.RoleAssistant, Content: "A page."},
	})
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	if got[0].Role != "system" || got[0].Content != SystemPrompt {
		t.Fatalf("first message is not the fixed prompt: %+v", got[0])
	}
	if got[1].Content != "Webpage content:\nExample Domain" {
		t.Fatalf("unexpected page message: %q", got[1].Content)
	}
	if got[2].Role != "user" || got[3].Role != "assistant" {
		t.Fatalf("conversation order not preserved: %+v", got[2:])
	}
}

func TestSystemPromptAttribution(t *testing.T) {
	if !strings.Contains(SystemPrompt, "I was created by Daivya Shah") {
		t.Fatal("system prompt lost the creator attribution")
	}
}

func TestRelay_NoURLSkipsExtraction(t *testing.T) {
	ex := &stubExtractor{text: "never used"}
	p := &stubProvider{stream: &stubStream{deltas: []string{"Hi"}}}
	svc, _ := newTestService(ex, p)

	req := legacyRequest(t, `[{"role":"user","content":"Hello"}]`)
	rec, err := svc.Relay(context.Background(), uuid.New(), req, &recordingWriter{})
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if ex.calls != 0 {
		t.Fatalf("extractor should not run without a URL, ran %d times", ex.calls)
	}
	if p.got[1].Content != "Webpage content:\n" {
		t.Fatalf("unexpected page message: %q", p.got[1].Content)
	}
	if rec.ScrapeStatus != models.ScrapeSkipped {
		t.Fatalf("expected skipped scrape, got %s", rec.ScrapeStatus)
	}
}

func TestRelay_ExampleDomain(t *testing.T) {
	ex := &stubExtractor{text: "Example Domain"}
	p := &stubProvider{stream: &stubStream{deltas: []string{"It is ", "an example."}}}
	svc, _ := newTestService(ex, p)

	req := legacyRequest(t, `[
		{"role":"system","content":"https://example.com"},
		{"role":"user","content":"What is this page?"}
	]`)
	if _, err := svc.Relay(context.Background(), uuid.New(), req, &recordingWriter{}); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if ex.gotURL != "https://example.com" {
		t.Fatalf("unexpected URL passed to extractor: %q", ex.gotURL)
	}
	if len(p.got) != 3 {
		t.Fatalf("system messages must not be forwarded, got %d messages", len(p.got))
	}
	if p.got[1].Content != "Webpage content:\nExample Domain" {
		t.Fatalf("unexpected page message: %q", p.got[1].Content)
	}
	if p.got[2].Role != "user" || p.got[2].Content != "What is this page?" {
		t.Fatalf("unexpected user message: %+v", p.got[2])
	}
}

func TestRelay_ExtractionFailureUsesSentinel(t *testing.T) {
	ex := &stubExtractor{err: errors.New("dial tcp: no such host")}
	p := &stubProvider{stream: &stubStream{deltas: []string{"Sorry"}}}
	svc, st := newTestService(ex, p)

	req := legacyRequest(t, `[{"role":"system","content":"https://unreachable.invalid"},{"role":"user","content":"Hi"}]`)
	rec, err := svc.Relay(context.Background(), uuid.New(), req, &recordingWriter{})
	if err != nil {
		t.Fatalf("extraction failure must not fail the relay: %v", err)
	}
	want := "Webpage content:\n" + scrape.FailureSentinel
	if p.got[1].Content != want {
		t.Fatalf("got %q, want %q", p.got[1].Content, want)
	}
	if rec.ScrapeStatus != models.ScrapeFailed || rec.FinalState != string(StateClosed) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(st.records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(st.records))
	}
}

func TestRelay_BytesMatchDeltasInOrder(t *testing.T) {
	deltas := []string{"Hel", "", "lo, ", "wörld", "!"}
	stream := &stubStream{deltas: deltas}
	p := &stubProvider{stream: stream}
	svc, st := newTestService(&stubExtractor{}, p)

	w := &recordingWriter{}
	req := legacyRequest(t, `[{"role":"user","content":"Hi"}]`)
	rec, err := svc.Relay(context.Background(), uuid.New(), req, w)
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if got := w.String(); got != strings.Join(deltas, "") {
		t.Fatalf("got %q, want %q", got, strings.Join(deltas, ""))
	}
	if rec.Chunks != 4 || w.flushes != 4 {
		t.Fatalf("expected 4 chunks and flushes, got chunks=%d flushes=%d", rec.Chunks, w.flushes)
	}
	if rec.Bytes != int64(len("Hello, wörld!")) {
		t.Fatalf("unexpected byte count %d", rec.Bytes)
	}
	if stream.closed != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closed)
	}
	if st.records[0].FinalState != string(StateClosed) {
		t.Fatalf("unexpected final state %s", st.records[0].FinalState)
	}
}

func TestRelay_ProviderOpenFailure(t *testing.T) {
	p := &stubProvider{openErr: errors.New("401 unauthorized")}
	svc, st := newTestService(&stubExtractor{}, p)

	w := &recordingWriter{}
	req := legacyRequest(t, `[{"role":"user","content":"Hi"}]`)
	rec, err := svc.Relay(context.Background(), uuid.New(), req, w)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if w.Len() != 0 || rec.Bytes != 0 {
		t.Fatal("nothing may be written when the stream never opened")
	}
	if st.records[0].FinalState != string(StateErrored) || st.records[0].Error == "" {
		t.Fatalf("unexpected audit record: %+v", st.records[0])
	}
}

func TestRelay_MidStreamFailure(t *testing.T) {
	stream := &stubStream{deltas: []string{"partial "}, err: errors.New("connection reset")}
	p := &stubProvider{stream: stream}
	svc, _ := newTestService(&stubExtractor{}, p)

	w := &recordingWriter{}
	req := legacyRequest(t, `[{"role":"user","content":"Hi"}]`)
	rec, err := svc.Relay(context.Background(), uuid.New(), req, w)
	if !errors.Is(err, ErrStreamInterrupted) {
		t.Fatalf("expected ErrStreamInterrupted, got %v", err)
	}
	if w.String() != "partial " || rec.Bytes != int64(len("partial ")) {
		t.Fatalf("unexpected partial output %q (bytes=%d)", w.String(), rec.Bytes)
	}
	if rec.FinalState != string(StateErrored) {
		t.Fatalf("unexpected final state %s", rec.FinalState)
	}
	if stream.closed != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closed)
	}
}

func TestRelay_ClientWriteFailure(t *testing.T) {
	stream := &stubStream{deltas: []string{"a", "b"}}
	p := &stubProvider{stream: stream}
	svc, _ := newTestService(&stubExtractor{}, p)

	w := &recordingWriter{writeErr: errors.New("broken pipe")}
	req := legacyRequest(t, `[{"role":"user","content":"Hi"}]`)
	_, err := svc.Relay(context.Background(), uuid.New(), req, w)
	if !errors.Is(err, ErrClientWrite) {
		t.Fatalf("expected ErrClientWrite, got %v", err)
	}
	if stream.closed != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closed)
	}
}

func TestRelay_ExplicitURLWins(t *testing.T) {
	ex := &stubExtractor{text: "Docs"}
	p := &stubProvider{stream: &stubStream{}}
	svc, _ := newTestService(ex, p)

	req := legacyRequest(t, `{
		"url": "https://docs.example.com",
		"messages": [
			{"role":"system","content":"https://ignored.example.com"},
			{"role":"user","content":"Hi"}
		]
	}`)
	rec, err := svc.Relay(context.Background(), uuid.New(), req, &recordingWriter{})
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if ex.gotURL != "https://docs.example.com" || rec.PageURL != "https://docs.example.com" {
		t.Fatalf("explicit url not used: extractor=%q record=%q", ex.gotURL, rec.PageURL)
	}
	if len(p.got) != 3 {
		t.Fatalf("expected 3 outbound messages, got %d", len(p.got))
	}
}

func TestRelay_HangingPageStillReachesProvider(t *testing.T) {
	release := make(chan struct{})
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer page.Close()
	defer close(release)

	p := &stubProvider{stream: &stubStream{deltas: []string{"I could not read that page."}}}
	svc := NewRelayService(scrape.NewHTMLExtractor(page.Client(), ""), p, &memStore{},
		WithScrapeTimeout(100*time.Millisecond))

	// Same shape as the router's request deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w := &recordingWriter{}
	req := legacyRequest(t, `[{"role":"system","content":"`+page.URL+`"},{"role":"user","content":"Hi"}]`)
	rec, err := svc.Relay(ctx, uuid.New(), req, w)
	if err != nil {
		t.Fatalf("a hanging page must not fail the relay: %v", err)
	}
	if want := PageContentPrefix + scrape.FailureSentinel; p.got[1].Content != want {
		t.Fatalf("got %q, want %q", p.got[1].Content, want)
	}
	if rec.ScrapeStatus != models.ScrapeFailed || rec.FinalState != string(StateClosed) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if w.String() != "I could not read that page." {
		t.Fatalf("unexpected body %q", w.String())
	}
}

func TestWithScrapeTimeout_IgnoresNonPositive(t *testing.T) {
	svc := NewRelayService(&stubExtractor{}, &stubProvider{}, nil, WithScrapeTimeout(0))
	if svc.scrapeTimeout != DefaultScrapeTimeout {
		t.Fatalf("expected default scrape timeout, got %s", svc.scrapeTimeout)
	}
	svc = NewRelayService(&stubExtractor{}, &stubProvider{}, nil, WithScrapeTimeout(time.Second))
	if svc.scrapeTimeout != time.Second {
		t.Fatalf("expected 1s scrape timeout, got %s", svc.scrapeTimeout)
	}
}

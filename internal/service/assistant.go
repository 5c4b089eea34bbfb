package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"statementqa/internal/domain"
	"statementqa/internal/ingest"
	"statementqa/internal/prompt"
	"statementqa/internal/response"
	"statementqa/internal/router"
	"statementqa/internal/websearch"
)

const (
	sourceExcerptLen = 200
	passwordMessage  = "Password failure. Please enter the correct password."
	webNotice        = "Web search included for detailed context."
)

// ErrEmptyQuery is returned for blank questions.
var ErrEmptyQuery = errors.New("query is empty")

// Ingester is the part of ingest.Pipeline the session needs.
type Ingester interface {
	Ingest(ctx context.Context, file domain.UploadedFile, password string) (*ingest.Result, error)
}

// Query is one user question.
type Query struct {
	Text           string
	Mode           domain.Mode
	ForceWebSearch bool
}

// LoadStatus describes the statement now loaded.
type LoadStatus struct {
	FileName  string `json:"file_name"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Overview  string `json:"overview,omitempty"`
	Cached    bool   `json:"cached"`
	Message   string `json:"message"`
}

// Assistant is one question-answering session over at most one loaded
// statement. Queries read the current index under a read lock, so a load
// never disturbs a query already in flight.
type Assistant struct {
	ingester  Ingester
	cache     *ingest.Cache
	completer domain.Completer
	searcher  domain.Searcher
	topK      int
	logger    *slog.Logger
	tracer    trace.Tracer

	mu      sync.RWMutex
	current *ingest.Result
}

type Option func(*Assistant)

// WithSearcher enables live web context. Without it the router decision is
// recorded but no search runs.
func WithSearcher(s domain.Searcher) Option {
	return func(a *Assistant) { a.searcher = s }
}

func WithCache(c *ingest.Cache) Option {
	return func(a *Assistant) { a.cache = c }
}

func WithTopK(k int) Option {
	return func(a *Assistant) { a.topK = k }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

func NewAssistant(ing Ingester, completer domain.Completer, opts ...Option) *Assistant {
	a := &Assistant{
		ingester:  ing,
		completer: completer,
		topK:      4,
		logger:    slog.Default(),
		tracer:    otel.Tracer("statementqa/service"),
	}
	for _, o := range opts {
		o(a)
	}
	if a.cache == nil {
		a.cache = ingest.NewCache()
	}
	return a
}

// Load ingests file, or reuses a cached result for the same bytes and
// password, and makes it the current statement. On failure the session has
// no statement loaded.
func (a *Assistant) Load(ctx context.Context, file domain.UploadedFile, password string) (*LoadStatus, error) {
	key := ingest.Key(file.Data, password)
	res, cached := a.cache.Get(key)
	if !cached {
		var err error
		res, err = a.ingester.Ingest(ctx, file, password)
		if err != nil {
			a.setCurrent(nil)
			a.logger.WarnContext(ctx, "statement load failed", "file", file.Name, "error", err)
			return nil, err
		}
		a.cache.Put(key, res)
	}
	a.setCurrent(res)

	return &LoadStatus{
		FileName:  file.Name,
		Documents: res.Documents,
		Chunks:    res.Chunks,
		Overview:  res.Overview,
		Cached:    cached,
		Message:   fmt.Sprintf("Statement **%s** processed successfully!", file.Name),
	}, nil
}

// Loaded returns the name of the current statement.
func (a *Assistant) Loaded() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return "", false
	}
	return a.current.FileName, true
}

// ClearCache forgets every cached ingestion and unloads the current
// statement. It returns the number of cache entries dropped.
func (a *Assistant) ClearCache() int {
	a.setCurrent(nil)
	return a.cache.Clear()
}

func (a *Assistant) setCurrent(r *ingest.Result) {
	a.mu.Lock()
	a.current = r
	a.mu.Unlock()
}

// Ask answers q against the current statement.
func (a *Assistant) Ask(ctx context.Context, q Query) (ans *domain.Answer, err error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	if q.Mode == "" {
		q.Mode = domain.ModeConcise
	}

	a.mu.RLock()
	current := a.current
	a.mu.RUnlock()
	if current == nil {
		return nil, domain.ErrNoDocument
	}

	ctx, span := a.tracer.Start(ctx, "ask", trace.WithAttributes(
		attribute.String("mode", string(q.Mode)),
		attribute.Bool("force_web_search", q.ForceWebSearch),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ask failed")
		}
		span.End()
	}()

	hits, err := current.Index.Retrieve(ctx, q.Text, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = h.Chunk.Text
	}

	ans = &domain.Answer{Sources: sources(hits)}
	if router.ShouldSearchWeb(q.Text, q.Mode, q.ForceWebSearch) && a.searcher != nil {
		ans.WebContext = websearch.Lookup(ctx, a.searcher, q.Text, a.logger)
		ans.UsedWeb = true
		if q.Mode == domain.ModeDetailed {
			ans.Notice = webNotice
		}
	}
	span.SetAttributes(attribute.Int("retrieved", len(hits)), attribute.Bool("web", ans.UsedWeb))

	text, err := a.completer.Complete(ctx, prompt.Compose(prompt.Request{
		Mode:       q.Mode,
		Documents:  docs,
		WebContext: ans.WebContext,
		Query:      q.Text,
	}))
	if err != nil {
		var ce *domain.CompletionError
		if !errors.As(err, &ce) {
			err = &domain.CompletionError{Attempts: 1, Err: err}
		}
		return nil, err
	}

	parsed := response.Parse(text)
	if parsed.Err != nil {
		a.logger.WarnContext(ctx, "could not render chart", "error", parsed.Err)
	}
	ans.Prose = parsed.Prose
	ans.Chart = parsed.Chart
	return ans, nil
}

// UserMessage turns a Load or Ask error into the text shown to the user.
func UserMessage(err error) string {
	if domain.IsPasswordError(err) {
		return passwordMessage
	}
	return err.Error()
}

func sources(hits []domain.SearchResult) []domain.Source {
	out := make([]domain.Source, len(hits))
	for i, h := range hits {
		out[i] = domain.Source{
			Location: domain.Location(h.Chunk.Metadata),
			Content:  excerpt(h.Chunk.Text, sourceExcerptLen) + "...",
		}
	}
	return out
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

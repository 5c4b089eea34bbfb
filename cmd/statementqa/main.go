package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"statementqa/internal/chunker"
	"statementqa/internal/config"
	"statementqa/internal/domain"
	"statementqa/internal/embedding"
	"statementqa/internal/extractor"
	"statementqa/internal/ingest"
	"statementqa/internal/llm"
	"statementqa/internal/logging"
	"statementqa/internal/server"
	"statementqa/internal/service"
	"statementqa/internal/summarizer"
	"statementqa/internal/tui"
	"statementqa/internal/vectorstore/memory"
	"statementqa/internal/websearch"
)

type cli struct {
	Config string `help:"Path to YAML config file (uses ./config.yaml or ~/.config/statementqa/config.yaml if empty)" type:"path"`

	Chat  chatCmd  `cmd:"" default:"withargs" help:"Interactive terminal chat"`
	Ask   askCmd   `cmd:"" help:"Answer one question about a statement and exit"`
	Serve serveCmd `cmd:"" help:"Run the HTTP API"`
}

type chatCmd struct {
	File     string `arg:"" optional:"" help:"Statement to load at startup" type:"existingfile"`
	Password string `help:"Password for an encrypted statement" env:"STATEMENT_PASSWORD"`
	Mode     string `help:"Response mode: Concise or Detailed" default:"Concise"`
}

type askCmd struct {
	File     string `arg:"" help:"Statement file (pdf, docx, xlsx, xls)" type:"existingfile"`
	Question string `arg:"" help:"Question to answer"`
	Password string `help:"Password for an encrypted statement" env:"STATEMENT_PASSWORD"`
	Mode     string `help:"Response mode: Concise or Detailed" default:"Concise"`
	Web      bool   `help:"Force a live web search"`
	Sources  bool   `help:"Print the retrieved excerpts"`
}

type serveCmd struct {
	Addr string `help:"Listen address (overrides server.addr)"`
}

type app struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	assistant *service.Assistant
}

func main() {
	_ = godotenv.Load()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("statementqa"),
		kong.Description("Ask questions about a financial statement."),
		kong.UsageOnError(),
	)

	var (
		cfg *config.AppConfig
		err error
	)
	if c.Config == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(c.Config)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAssistant(ctx, cfg, logger)
	if err != nil {
		// credential errors are fatal before any input is accepted
		log.Fatal(err)
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.Run(&app{cfg: cfg, logger: logger, assistant: a}))
}

func newAssistant(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*service.Assistant, error) {
	llmKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}
	completer, err := llm.New(ctx, cfg.LLM, llmKey, logger)
	if err != nil {
		return nil, fmt.Errorf("llm init failed: %w", err)
	}

	var embKey string
	if cfg.Embedder.Type != "hashing" {
		if embKey, err = cfg.EmbedderAPIKey(); err != nil {
			return nil, err
		}
	}
	emb, err := embedding.New(ctx, cfg.Embedder, embKey)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}

	ch, err := chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap, cfg.Chunker.Separators)
	if err != nil {
		return nil, err
	}

	pipeline := ingest.New(extractor.New(logger), ch, emb,
		ingest.WithSummarizer(summarizer.NewFrequencySummarizer()),
		ingest.WithIndexOptions(memory.Options{
			BatchSize:   cfg.Embedder.BatchSize,
			Concurrency: cfg.Embedder.Concurrency,
			TopK:        cfg.Retrieval.TopK,
		}),
		ingest.WithLogger(logger),
	)

	opts := []service.Option{
		service.WithTopK(cfg.Retrieval.TopK),
		service.WithLogger(logger),
	}
	if !cfg.WebSearch.Disabled {
		client := &http.Client{
			Timeout:   time.Duration(cfg.WebSearch.TimeoutSecs) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		opts = append(opts, service.WithSearcher(websearch.New(cfg.WebSearch, client, logger)))
	}
	return service.NewAssistant(pipeline, completer, opts...), nil
}

func loadFile(ctx context.Context, a *service.Assistant, path, password string) (*service.LoadStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return a.Load(ctx, domain.UploadedFile{Name: filepath.Base(path), Data: data}, password)
}

func (c *chatCmd) Run(ctx context.Context, app *app) error {
	mode, err := domain.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if c.File != "" {
		if _, err := loadFile(ctx, app.assistant, c.File, c.Password); err != nil {
			return errors.New(service.UserMessage(err))
		}
	}
	m := tui.New(ctx, app.assistant, mode)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (c *askCmd) Run(ctx context.Context, app *app) error {
	mode, err := domain.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	st, err := loadFile(ctx, app.assistant, c.File, c.Password)
	if err != nil {
		return errors.New(service.UserMessage(err))
	}
	app.logger.Info("statement loaded", "file", st.FileName, "chunks", st.Chunks)

	ans, err := app.assistant.Ask(ctx, service.Query{Text: c.Question, Mode: mode, ForceWebSearch: c.Web})
	if err != nil {
		return errors.New(service.UserMessage(err))
	}
	if ans.Notice != "" {
		fmt.Println(ans.Notice)
		fmt.Println()
	}
	fmt.Println(ans.Prose)
	if ans.Chart != nil {
		fmt.Println()
		fmt.Println(tui.RenderChart(ans.Chart, 80))
	}
	if c.Sources {
		fmt.Println("\nSources:")
		for i, s := range ans.Sources {
			fmt.Printf("\n%d. %s\n%s\n", i+1, s.Location, s.Content)
		}
	}
	return nil
}

func (c *serveCmd) Run(ctx context.Context, app *app) error {
	addr := app.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	return server.New(app.assistant, addr, app.logger).Start(ctx)
}

// Command autoscholar runs the orchestration core's HTTP adapter: it
// wires every process-wide singleton (HTTP pool, LLM client, cost
// tracker, source tracker, checkpoint store) and exposes the five
// workflow operations over gin.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/checkpoint"
	"github.com/tangerg-labs/autoscholar/internal/claimverify"
	"github.com/tangerg-labs/autoscholar/internal/config"
	"github.com/tangerg-labs/autoscholar/internal/costtracker"
	"github.com/tangerg-labs/autoscholar/internal/fulltext"
	"github.com/tangerg-labs/autoscholar/internal/httpapi"
	"github.com/tangerg-labs/autoscholar/internal/httpclient"
	"github.com/tangerg-labs/autoscholar/internal/llm"
	"github.com/tangerg-labs/autoscholar/internal/promptset"
	"github.com/tangerg-labs/autoscholar/internal/scholar"
	"github.com/tangerg-labs/autoscholar/internal/sourcetracker"
	"github.com/tangerg-labs/autoscholar/internal/stage"
	"github.com/tangerg-labs/autoscholar/internal/workflow"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("autoscholar: failed to load configuration")
	}

	sharedClient := httpclient.New(httpclient.Options{
		MaxConnsPerHost: cfg.HTTPPoolMaxConnsPerHost,
		DNSCacheTTL:     cfg.HTTPDNSCacheTTL,
		Timeout:         cfg.HTTPTimeout,
	})

	tracker := costtracker.New()
	llmClient := llm.New(llm.Options{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}, tracker, logger)

	templates := promptset.Default()

	fails := sourcetracker.New(cfg.SourceSkipWindow, cfg.SourceSkipThreshold)
	multiSource := scholar.NewMultiSourceClient(
		scholar.NewSemanticScholarClient(sharedClient, cfg.SemanticScholarAPIKey),
		scholar.NewArxivClient(sharedClient),
		scholar.NewPubMedClient(sharedClient, cfg.PubMedAPIKey),
		fails,
		logger,
	)
	resolver := fulltext.NewResolver(sharedClient, cfg.UnpaywallEmail, logger)

	planner := stage.NewPlanner(llmClient, templates, cfg.MaxKeywords, cfg.MaxConversationTurns, logger)
	retriever := stage.NewRetriever(multiSource, cfg.PapersPerQuery, logger)
	extractor := stage.NewExtractor(llmClient, templates, resolver, cfg.LLMConcurrency, cfg.FullTextConcurrency, logger)
	writer := stage.NewWriter(llmClient, templates, cfg.MaxConversationTurns, logger)

	claimExtractor := claimverify.NewExtractor(llmClient, templates, logger)
	claimVerifier := claimverify.NewVerifier(claimExtractor)
	critic := stage.NewCritic(claimExtractor, claimVerifier, cfg.ClaimVerificationConcurrency, cfg.ClaimVerificationEnabled, cfg.MinEntailmentRatio, logger)

	store := checkpoint.NewMemoryStore()
	engine := workflow.New(planner, retriever, extractor, writer, critic, tracker, store, logger)

	handler := httpapi.NewHandler(engine, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.Register(router)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("autoscholar: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("autoscholar: server failed")
		}
	}()

	shutdownOnSignal(&logger, srv, sharedClient)
}

// shutdownOnSignal blocks until SIGINT/SIGTERM, then closes the HTTP
// server and the shared client's idle connections -- the explicit
// teardown spec §9's "Global mutable state" calls for in place of relying
// on process exit.
func shutdownOnSignal(logger *zerolog.Logger, srv *http.Server, sharedClient *http.Client) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("autoscholar: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("autoscholar: graceful shutdown failed")
	}
	sharedClient.CloseIdleConnections()
}

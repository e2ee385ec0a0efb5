package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"jarvis/internal/analytics"
	"jarvis/internal/assistant"
	"jarvis/internal/config"
	"jarvis/internal/llm"
	"jarvis/internal/memory"
	"jarvis/internal/scheduler"
	"jarvis/internal/server"
	"jarvis/internal/storage"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg, err := config.New()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("failed to init logger: %v", err)
	}
	if envErr != nil {
		logger.Warnf(".env file not found: %v", envErr)
	}

	repo, err := storage.NewFileRepository(cfg.MemoryDBPath, logger)
	if err != nil {
		logger.Fatalf("failed to init memory storage: %v", err)
	}
	mem := memory.New(repo,
		memory.WithMaxInteractions(cfg.MemoryMaxInteractions),
		memory.WithLogger(logger),
	)

	factory := llm.NewFactory(cfg)
	provider := factory.ResolveProvider(string(cfg.LLMProvider))
	if provider != string(cfg.LLMProvider) {
		logger.Warnf("GROQ_API_KEY not set, falling back to %s", provider)
	}
	client, err := factory.CreateClient(provider)
	if err != nil {
		logger.Fatalf("failed to create llm client: %v", err)
	}

	jarvis := assistant.New(client, mem,
		assistant.WithPersona(readSystemPrompt(cfg.SystemPromptPath, logger)),
		assistant.WithContextResults(cfg.MemoryContextResults),
		assistant.WithLogger(logger),
	)

	sched := scheduler.New(logger)
	sched.SetReportFunction(dailyReport(mem, logger))
	if err := sched.Start(cfg.ReportSchedule); err != nil {
		logger.Fatalf("failed to start scheduler: %v", err)
	}

	srv := server.New(cfg.HTTPAddr, jarvis, mem, factory.CreateTranscriber(), factory.CreateSynthesizer(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.WithFields(logrus.Fields{
		"model":  client.Name(),
		"memory": mem.Stats().TotalMemories,
	}).Info("jarvis backend started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Errorf("server failed: %v", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Errorf("server shutdown failed: %v", err)
	}
	sched.Stop()
}

func readSystemPrompt(path string, logger logrus.FieldLogger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnf("system prompt file not found or unreadable at %s: %v", path, err)
		return ""
	}
	return string(data)
}

// dailyReport logs statistics for the current UTC day.
func dailyReport(mem *memory.Manager, logger logrus.FieldLogger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		stats := analytics.AnalyzeDaily(mem.Interactions(), time.Now().UTC())
		logger.WithFields(logrus.Fields{
			"date":         stats.Date,
			"interactions": stats.TotalInteractions,
			"retained":     mem.Stats().TotalMemories,
		}).Info(stats.GenerateReportSummary())
		return nil
	}
}

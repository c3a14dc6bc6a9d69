// Application wiring for CLI commands.
//
// Information Hiding:
// - Backend selection (in-memory vs SQLite)
// - Collaborator construction order
// - Optional subsystems (reporting disabled without credentials)

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/minase/kotae/config"
	"github.com/minase/kotae/llm"
	"github.com/minase/kotae/report"
	"github.com/minase/kotae/retry"
	"github.com/minase/kotae/sheets"
	"github.com/minase/kotae/store"
	"github.com/minase/kotae/stream"
	"github.com/minase/kotae/workflow"
)

// App holds the wired application core. Delivery (Discord or console) is
// chosen per command via newRunner.
type App struct {
	Settings config.Settings
	Logger   *slog.Logger

	kv          store.KV
	state       *store.State
	checkpoints workflow.Checkpointer
	provider    llm.Provider
	source      *sheets.Source
	reporter    *report.Reporter
	closers     []func() error
}

// NewApp wires the application core from settings.
func NewApp(logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	settings, err := config.New()
	if err != nil {
		return nil, err
	}

	app := &App{Settings: settings, Logger: logger}

	if err := app.openKV(settings.Store); err != nil {
		return nil, err
	}
	app.state = store.NewState(app.kv, settings.Store.TTL, logger)
	app.checkpoints = workflow.NewKVCheckpointer(app.kv, 0, logger)

	app.provider, err = buildProvider(settings.LLM)
	if err != nil {
		return nil, err
	}
	logger.Info("model provider ready",
		"provider", app.provider.Name(), "model", app.provider.Model())

	app.source, err = buildSource(settings.Sheets, logger)
	if err != nil {
		return nil, err
	}

	app.reporter = buildReporter(settings.Report, app.kv, logger)
	return app, nil
}

// Close releases backend resources.
func (a *App) Close() {
	for _, close := range a.closers {
		if err := close(); err != nil {
			a.Logger.Warn("close failed", "error", err)
		}
	}
}

// newRunner builds a workflow runner with the given delivery factory.
func (a *App) newRunner(newSink func(token string) workflow.Sink) *workflow.Runner {
	return workflow.NewRunner(
		a.state,
		a.checkpoints,
		a.source,
		a.provider,
		a.reporter,
		newSink,
		workflowConfig(a.Settings),
		a.Logger,
	)
}

func (a *App) openKV(cfg config.StoreConfig) error {
	if cfg.Path == "" {
		a.Logger.Info("using in-memory store")
		a.kv = store.NewMemoryKV()
		return nil
	}

	sqlite, err := store.OpenSqliteKV(cfg.Path)
	if err != nil {
		return err
	}
	a.Logger.Info("using SQLite store", "path", cfg.Path)
	a.closers = append(a.closers, sqlite.Close)
	a.kv = sqlite
	return nil
}

func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewProviderBuilder(providerType).
		Model(cfg.Model).
		MaxTokens(cfg.MaxTokens).
		Temperature(float32(cfg.Temperature)).
		FromEnv()
}

func buildSource(cfg config.SheetsConfig, logger *slog.Logger) (*sheets.Source, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("SHEETS_SPREADSHEET_ID is required")
	}
	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}

	return sheets.NewSource(sheets.Config{
		SpreadsheetID:    cfg.SpreadsheetID,
		DataRange:        cfg.DataRange,
		DescriptionRange: cfg.DescriptionRange,
		CredentialsJSON:  credentials,
	}, logger), nil
}

// buildReporter wires the issue tracker when credentials exist; without
// them the reporter degrades to a no-op.
func buildReporter(cfg config.ReportConfig, kv store.KV, logger *slog.Logger) *report.Reporter {
	var tracker report.Tracker
	if cfg.Token != "" && cfg.Owner != "" && cfg.Repo != "" {
		tracker = report.NewGitHubTracker(cfg.Token, cfg.Owner, cfg.Repo, cfg.Label)
		logger.Info("error reporting enabled", "repo", cfg.Owner+"/"+cfg.Repo)
	} else {
		logger.Info("error reporting disabled (no tracker credentials)")
	}
	return report.NewReporter(kv, tracker, []string{cfg.Label}, logger)
}

func workflowConfig(settings config.Settings) workflow.Config {
	cfg := workflow.DefaultConfig()
	cfg.StreamTimeout = settings.Workflow.StreamTimeout
	cfg.StreamRetry = retry.Config{
		MaxAttempts:  settings.Workflow.StreamAttempts,
		InitialDelay: retry.DefaultConfig().InitialDelay,
		MaxDelay:     retry.DefaultConfig().MaxDelay,
		Multiplier:   retry.DefaultConfig().Multiplier,
	}
	cfg.QuestionPrefix = settings.Workflow.QuestionPrefix
	cfg.FailureTemplate = settings.Workflow.FailureTemplate
	cfg.Throttle = stream.Options{
		ResponseInterval: settings.Throttle.ResponseInterval,
		ResponseMinChars: settings.Throttle.ResponseMinChars,
		ThinkingInterval: settings.Throttle.ThinkingInterval,
		ThinkingMinChars: settings.Throttle.ThinkingMinChars,
		ThinkingMarker:   settings.Throttle.ThinkingMarker,
		FallbackSummary:  settings.Throttle.FallbackSummary,
		Retry:            retry.DefaultConfig(),
	}
	return cfg
}

package cli

import (
	"context"
	"database/sql"

	"github.com/nijaru/yt-digest/cache"
	"github.com/nijaru/yt-digest/config"
	"github.com/nijaru/yt-digest/handlers/api"
	"github.com/nijaru/yt-digest/ledger"
	"github.com/nijaru/yt-digest/prompts"
	"github.com/nijaru/yt-digest/repository/sqlite"
	"github.com/nijaru/yt-digest/scripts"
	"github.com/nijaru/yt-digest/services/analysis"
	"github.com/nijaru/yt-digest/services/summary"
	"github.com/nijaru/yt-digest/services/transcript"
	"github.com/nijaru/yt-digest/services/youtube"
	"github.com/nijaru/yt-digest/session"
	"github.com/nijaru/yt-digest/storage"
	"github.com/nijaru/yt-digest/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ledgers struct {
	history *ledger.History
	costs   *ledger.Costs
}

func openLedgers(cfg *config.Config, logger *logrus.Logger, mirror ledger.Mirror) ledgers {
	return ledgers{
		history: ledger.NewHistory(ledger.Options{
			Path:   cfg.Ledger.HistoryPath,
			Limit:  cfg.Ledger.HistoryLimit,
			Logger: logger,
			Mirror: mirror,
		}),
		costs: ledger.NewCosts(ledger.Options{
			Path:   cfg.Ledger.CostsPath,
			Limit:  cfg.Ledger.CostsLimit,
			Logger: logger,
			Mirror: mirror,
		}),
	}
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	return sqlite.InitDB(cfg.Database.Path, sqlite.DBConfig{
		MaxConnections:     cfg.Database.MaxConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
	})
}

// openMirror connects to the backup bucket and restores ledger files that
// are missing locally. It returns nil when backups are disabled.
func openMirror(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ledger.Mirror, error) {
	if !cfg.Backup.Enabled {
		return nil, nil
	}

	client, err := storage.NewSpacesClient(ctx, storage.SpacesConfig{
		AccessKey: cfg.Backup.AccessKey,
		SecretKey: cfg.Backup.SecretKey,
		Region:    cfg.Backup.Region,
		Endpoint:  cfg.Backup.Endpoint,
		Bucket:    cfg.Backup.Bucket,
		Prefix:    cfg.Backup.Prefix,
	})
	if err != nil {
		return nil, err
	}

	for _, path := range []string{cfg.Ledger.HistoryPath, cfg.Ledger.CostsPath} {
		restored, err := client.RestoreFile(ctx, path)
		if err != nil {
			logger.WithError(err).WithField("path", path).Warn("Failed to restore ledger from backup")
			continue
		}
		if restored {
			logger.WithField("path", path).Info("Restored ledger from backup")
		}
	}

	return client, nil
}

// application is everything the serve command wires together.
type application struct {
	services api.Services
	db       *sql.DB
}

func (a *application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func buildApplication(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*application, error) {
	mirror, err := openMirror(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize backup mirror")
	}
	l := openLedgers(cfg, logger, mirror)

	store, err := cache.NewStore(cfg.Cache.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize cache")
	}
	fetcher := cache.NewFetcher(store, cache.NewThrottle(cfg.Cache.MaxRequestsPerSecond, cfg.Cache.MaxJitter), logger)

	db, err := openDB(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}
	app := &application{db: db}

	metadata, err := youtube.New(ctx, youtube.Config{APIKey: cfg.YouTube.APIKey}, fetcher, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	runner := scripts.NewRunner(scripts.Config{Timeout: cfg.Transcription.ProcessTimeout}, logger)
	for _, tool := range []string{cfg.Transcription.YTDLPPath, cfg.Transcription.PDFToTextPath} {
		if !runner.Available(tool) {
			logger.WithField("tool", tool).Warn("External tool not found in PATH")
		}
	}

	var whisper transcript.Transcriber
	if cfg.Transcription.WhisperAPIKey != "" {
		whisper = transcript.NewWhisperClient(transcript.WhisperConfig{
			URL:     cfg.Transcription.WhisperURL,
			APIKey:  cfg.Transcription.WhisperAPIKey,
			Model:   cfg.Transcription.WhisperModel,
			Timeout: cfg.Transcription.ProcessTimeout,
		})
	} else {
		logger.Warn("OPENAI_API_KEY not set, whisper transcription is disabled")
	}

	transcripts := transcript.NewService(transcript.Config{
		YTDLPPath:       cfg.Transcription.YTDLPPath,
		PDFToTextPath:   cfg.Transcription.PDFToTextPath,
		AudioDir:        cfg.Transcription.AudioDir,
		TempDir:         cfg.TempDir,
		DefaultLanguage: cfg.YouTube.DefaultLanguage,
		PricePerMinute:  cfg.Transcription.PricePerMinute,
		MaxUploadBytes:  cfg.Transcription.MaxUploadBytes,
	}, runner, whisper, fetcher, logger)

	promptStore := prompts.Open(cfg.Prompts.Path, logger)

	var generator summary.Generator
	if cfg.LLM.APIKey != "" {
		gemini, err := summary.NewGeminiGenerator(ctx, summary.GeminiConfig{
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		generator = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, summaries and articles are disabled")
	}

	summaries := summary.NewService(generator, promptStore, summary.Config{
		Model:              cfg.LLM.Model,
		InputPricePerMTok:  cfg.LLM.InputPricePerMTok,
		OutputPricePerMTok: cfg.LLM.OutputPricePerMTok,
	}, logger)

	sessions, err := session.NewStore(cfg.Session.MaxSessions)
	if err != nil {
		app.Close()
		return nil, errors.Wrap(err, "failed to initialize session store")
	}

	runs := sqlite.NewRunRepository(db)

	app.services = api.Services{
		Analysis: analysis.NewService(analysis.Deps{
			Metadata:    metadata,
			Transcripts: transcripts,
			Summaries:   summaries,
			History:     l.history,
			Costs:       l.costs,
			Runs:        runs,
			Validator:   validation.NewValidator(cfg.Transcription.MaxUploadBytes),
			Logger:      logger,
		}),
		History:  l.history,
		Costs:    l.costs,
		Prompts:  promptStore,
		Runs:     runs,
		Sessions: sessions,
		Cache:    fetcher,
	}

	return app, nil
}

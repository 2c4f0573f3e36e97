package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kevinaaaquil/lexireader/config"
	"github.com/kevinaaaquil/lexireader/enrich"
	"github.com/kevinaaaquil/lexireader/handlers"
	"github.com/kevinaaaquil/lexireader/library"
	"github.com/kevinaaaquil/lexireader/service"
	"github.com/kevinaaaquil/lexireader/session"
	"github.com/kevinaaaquil/lexireader/settings"
	"github.com/kevinaaaquil/lexireader/state"
	"github.com/kevinaaaquil/lexireader/study"
	"github.com/kevinaaaquil/lexireader/utils"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateEnv(a.log); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(log)

	// unreadable stored data starts empty; the server still comes up
	lib, err := library.Load(ctx, st.db, library.NewMigrator(st.kv, st.db))
	if err != nil {
		if !state.IsPersistError(err) {
			return err
		}
		log.Warn("library loaded with errors", "error", err)
	}

	sealer, err := utils.NewSealer(cfg.SettingsEncryptionKey)
	if err != nil {
		return fmt.Errorf("SETTINGS_ENCRYPTION_KEY: %w", err)
	}
	if sealer == nil {
		log.Warn("SETTINGS_ENCRYPTION_KEY not set; the speech api key is stored in plain text")
	}

	speech := service.NewElevenLabsClient(cfg.ElevenLabsBaseURL, cfg.ElevenLabsModel, nil)
	prefs, err := settings.Load(ctx, st.kv, sealer, speech, log)
	if err != nil {
		log.Warn("settings loaded with errors", "error", err)
	}
	if _, err := prefs.ValidateVoice(ctx); err != nil {
		log.Warn("could not store the validated voice", "error", err)
	}

	var enricher study.TextEnricher
	if cfg.GeminiAPIKey != "" {
		enricher = service.NewGeminiClient(service.GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			BaseURL:        cfg.GeminiBaseURL,
			Model:          cfg.GeminiModel,
			TimeoutSeconds: cfg.GeminiTimeoutSeconds,
		}, nil)
	}

	pool := enrich.NewPool(cfg.EnrichWorkers, cfg.EnrichQueue, log)
	pool.Start(ctx)
	defer pool.Close()

	reconciler, err := study.New(ctx, study.Deps{
		KV:             st.kv,
		Enricher:       enricher,
		Speaker:        speech,
		Speech:         prefs,
		Jobs:           pool,
		Log:            log,
		AudioCacheCost: cfg.AudioCacheCost,
	})
	if err != nil {
		if reconciler == nil {
			return err
		}
		log.Warn("study data loaded with errors", "error", err)
	}
	defer reconciler.Close()
	go func() {
		if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("study reconciler stopped", "error", err)
		}
	}()

	var covers handlers.CoverStorage
	if cfg.S3Bucket != "" {
		cs, err := service.NewCoverStore(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		covers = cs
	} else {
		log.Warn("AWS_S3_BUCKET not set; covers stay inline in book records")
	}

	books := &handlers.BooksHandler{Library: lib, Covers: covers}
	rt := &handlers.Router{
		Auth: &handlers.AuthHandler{
			Users:        st.db,
			JWTSecret:    cfg.JWTSecret,
			DefaultEmail: cfg.AuthEmail,
			DefaultPass:  cfg.AuthPass,
		},
		Books: books,
		Import: &handlers.ImportHandler{
			Books:    books,
			Metadata: service.NewMetadataClient(cfg.GoogleBooksURL, nil),
			Articles: service.NewArticleFetcher(nil),
			MaxBytes: cfg.MaxUploadMB << 20,
		},
		Session:     &handlers.SessionHandler{Tracker: session.NewTracker(lib, nil)},
		Study:       &handlers.StudyHandler{Study: reconciler, Library: lib},
		Settings:    &handlers.SettingsHandler{Settings: prefs},
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"cardiorisk/db"
	"cardiorisk/engine"
	qhttp "cardiorisk/http"
	"cardiorisk/ml"
	"cardiorisk/monitoring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()
		undo := zap.ReplaceGlobals(logger)
		defer undo()
		overrideArtifacts(cmd, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// 1. Artifacts and engine
		artifacts := engine.LoadArtifacts(cfg.ML.ModelPath, cfg.ML.ScalerPath, logger)
		eng, err := engine.New(artifacts, engine.WithLogger(logger), engine.WithCache(cfg.ML.CacheSize))
		if err != nil {
			return fmt.Errorf("init engine: %w", err)
		}
		if cfg.ML.Watch {
			if err := engine.WatchArtifacts(ctx, []string{cfg.ML.ModelPath, cfg.ML.ScalerPath}, logger, nil); err != nil {
				logger.Warn("artifact watcher not started", zap.Error(err))
			}
		}

		// 2. Database
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		logger.Info("database initialized", zap.String("path", cfg.Database.Path))

		// 3. Live feed
		hub := monitoring.NewHub(cfg.Http.AllowedOrigins, logger)
		hub.SetStatusProvider(func() any {
			return map[string]string{
				"mode":           string(eng.Mode()),
				"schema_version": ml.SchemaVersion,
			}
		})
		go hub.Run(ctx)

		// 4. HTTP server
		server := qhttp.NewServer(qhttp.ServerConfig{
			Port:           cfg.Http.Port,
			Timeout:        cfg.Http.Timeout,
			AllowedOrigins: cfg.Http.AllowedOrigins,
			MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		}, qhttp.NewAPI(eng, store, hub, logger), logger)

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		// 5. Graceful shutdown
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		if err := server.Stop(); err != nil {
			logger.Error("server stop", zap.Error(err))
		}
		<-hub.Done()
		return nil
	},
}

func init() {
	addArtifactFlags(serveCmd)
}

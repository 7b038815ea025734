package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"annotation-review/internal/config"
	"annotation-review/internal/handler"
	"annotation-review/internal/repository"
	"annotation-review/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the frontend when built)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting annotation review service...")

	repo, err := repository.NewAnnotationRepository(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	annotator := service.NewAnnotator(repo, service.Options{
		DefaultFingerprint: cfg.Annotation.DefaultFingerprint,
		Labels: service.Labels{
			DefaultDimension: cfg.Annotation.DefaultDimensionLabel,
			UnnamedAnnotator: cfg.Annotation.UnnamedAnnotatorLabel,
			AnnotatorPrefix:  cfg.Annotation.AnnotatorNamePrefix,
			PlaceholderTotal: cfg.Annotation.ProgressPlaceholderTotal,
		},
		Extraction: service.ExtractionRules{
			Judgement: cfg.Annotation.JudgementKeys,
			Reasoning: cfg.Annotation.ReasoningKeys,
		},
	}, logger)

	uploader := service.NewUploader(service.UploadOptions{
		MaxFileSize:       cfg.Upload.MaxFileSize,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	}, logger)

	apiHandler := handler.NewHandler(annotator, uploader, handler.Options{
		APIPrefix: cfg.Server.APIPrefix,
		StaticDir: cfg.Server.StaticDir,
	}, logger)

	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(logger), handler.CORS(cfg.CORS.AllowOrigins))
	apiHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

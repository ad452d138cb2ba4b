package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"fileconverter/archive"
	"fileconverter/capability"
	"fileconverter/config"
	"fileconverter/converter"
	"fileconverter/detect"
	"fileconverter/handlers"
	"fileconverter/middleware"
	"fileconverter/pool"
	"fileconverter/service"
	"fileconverter/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	fs := afero.NewOsFs()

	store, err := session.NewStore(fs, cfg.UploadDir, cfg.OutputDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize session store", zap.Error(err))
	}

	detector := detect.NewDetector(fs, logger)
	matrix := capability.New()

	imageConv := converter.NewImage(logger, cfg.ImageMagickPath)
	documentConv := converter.NewDocument(logger, converter.EnginePaths{
		LibreOffice: cfg.LibreOfficePath,
		Pandoc:      cfg.PandocPath,
		PDFToText:   cfg.PDFToTextPath,
		PDFToPPM:    cfg.PDFToPPMPath,
	})
	ocr := converter.NewOCR(logger, cfg.TesseractPath, cfg.PDFToPPMPath)

	limiter := pool.NewLimiter(cfg.MaxConcurrentConversions)
	conv := service.NewConverter(fs, store, detector, matrix, imageConv, documentConv, limiter, logger)

	archiver, err := archive.NewArchiver(fs, store, cfg.ArchiveDir, cfg.ArchiveGrace, logger)
	if err != nil {
		logger.Fatal("failed to initialize archiver", zap.Error(err))
	}

	sweeper := session.NewSweeper(store, cfg.SessionTTL, cfg.SweepInterval, logger)
	sweeper.Start()
	defer sweeper.Stop()

	handler := handlers.New(cfg, fs, store, detector, matrix, conv, archiver, sweeper, ocr, logger)

	mux := http.NewServeMux()
	handler.Register(mux)

	chain := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-Trace-ID"},
	}).Handler(middleware.TraceID(middleware.Logging(logger)(middleware.Recovery(logger)(mux))))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           chain,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting",
		zap.String("addr", cfg.ListenAddr),
		zap.Bool("ocr_available", ocr.Available()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

package main

import (
	"fmt"
	"log"

	"billparse/internal/config"
	"billparse/internal/handler"
	"billparse/internal/ocr"
	"billparse/internal/ocr/gemini"
	"billparse/internal/ocr/openai"
	"billparse/internal/pipeline"
	"billparse/internal/port"
	"billparse/internal/repository/postgres"
	"billparse/internal/router"
	"billparse/internal/service"
	s3storage "billparse/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registerOCRProviders()

	ocrEngine, err := buildOCREngine(&cfg.OCR)
	if err != nil {
		return fmt.Errorf("failed to initialize ocr engine: %w", err)
	}

	var repo port.ExtractionRepository
	var historyH *handler.HistoryHandler
	healthH := handler.NewHealthHandler(nil)
	if cfg.History.Enabled {
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		repo = postgres.NewExtractionRepo(db)
		healthH = handler.NewHealthHandler(db)
	}

	var storage port.ObjectStorage
	if cfg.Archive.Enabled() {
		storage, err = s3storage.NewS3Client(&cfg.Archive)
		if err != nil {
			return fmt.Errorf("failed to initialize s3 client: %w", err)
		}
	}

	pipe := pipeline.New(&cfg.Pipeline)
	extractionSvc := service.NewExtractionService(pipe, ocrEngine, repo, storage, &cfg.Archive)

	amountH := handler.NewAmountHandler(extractionSvc)
	if cfg.History.Enabled {
		historyH = handler.NewHistoryHandler(extractionSvc)
	}

	r := router.Setup(cfg.CORS.AllowedOrigins, amountH, historyH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func registerOCRProviders() {
	ocr.RegisterProvider("gemini", func(cfg *config.OCRProviderConfig) (port.OCREngine, error) {
		return gemini.NewEngine(cfg), nil
	})
	ocr.RegisterProvider("openai", func(cfg *config.OCRProviderConfig) (port.OCREngine, error) {
		return openai.NewEngine(cfg), nil
	})
}

// buildOCREngine assembles the configured engines into a fallback chain.
// No configured provider yields a nil engine; image uploads are then rejected
// with OCR_UNAVAILABLE while text extraction keeps working.
func buildOCREngine(cfg *config.OCRConfig) (port.OCREngine, error) {
	var engines []port.OCREngine
	var names []string

	for _, pc := range []*config.OCRProviderConfig{&cfg.Primary, &cfg.Secondary} {
		if pc.Provider == "" {
			continue
		}
		e, err := ocr.NewEngine(pc)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
		names = append(names, pc.Provider)
	}

	switch len(engines) {
	case 0:
		return nil, nil
	case 1:
		return engines[0], nil
	default:
		return ocr.NewFallbackEngine(engines, names), nil
	}
}

// Package app builds the pipeline collaborators from configuration.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/menu-extractor/internal/config"
	"github.com/Lixing-Zhang/menu-extractor/internal/extraction"
	"github.com/Lixing-Zhang/menu-extractor/internal/idgen"
	"github.com/Lixing-Zhang/menu-extractor/internal/menu"
	"github.com/Lixing-Zhang/menu-extractor/internal/palette"
	"github.com/Lixing-Zhang/menu-extractor/internal/pipeline"
	"github.com/Lixing-Zhang/menu-extractor/internal/theme"
)

// NewDeps wires extraction, normalization, theme derivation and editing.
// Without a Gemini API key the extractor is left nil and extraction reports
// the missing credential.
func NewDeps(ctx context.Context, cfg *config.Config, log *slog.Logger) (pipeline.Deps, error) {
	gen := idgen.Default

	var extractor extraction.Extractor
	if cfg.Gemini.APIKey != "" {
		client, err := extraction.NewGeminiClient(ctx, extraction.GeminiConfig{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			BaseURL:    cfg.Gemini.BaseURL,
			Timeout:    config.Duration(cfg.Gemini.Timeout),
			MaxRetries: cfg.Gemini.MaxRetries,
		}, log)
		if err != nil {
			return pipeline.Deps{}, err
		}
		extractor = client
	} else {
		log.Warn("GEMINI_API_KEY is not set; extraction is disabled")
	}

	quantizer := &palette.KMeans{Size: uint(cfg.Theme.SampleSize)}

	return pipeline.Deps{
		Extractor:     extractor,
		Normalizer:    extraction.NewNormalizer(gen),
		Deriver:       theme.NewDeriver(quantizer, cfg.Theme.PaletteSize, config.Duration(cfg.Theme.Timeout), log),
		Editor:        menu.NewEditor(gen),
		Logger:        log,
		MaxImageBytes: cfg.Upload.MaxBytes,
	}, nil
}

// SweepInterval is how often idle sessions are looked for
func SweepInterval(cfg *config.Config) time.Duration {
	d := config.Duration(cfg.Session.SweepInterval)
	if d <= 0 {
		d = 5 * time.Minute
	}
	return d
}

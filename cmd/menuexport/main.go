// menuexport turns a photo of a restaurant menu into a themed menu document.
//
// The image is sent to the extraction service unless a previously saved
// response is given with -response. The color theme is derived from the image
// when there is one; otherwise the fallback theme is used.
//
// Usage:
//
//	menuexport -image menu.jpg [options]
//	menuexport -response saved.json [-image menu.jpg] [options]
//
// Options:
//
//	-config string    YAML configuration file
//	-image string     Menu photo (PNG, JPEG, GIF or WEBP)
//	-response string  Saved extraction response to use instead of calling the service
//	-format string    Output format: html, pdf or json (default "html")
//	-out string       Output path, "-" for stdout (default derived from the restaurant name)
//	-overwrite        Overwrite the output file if it exists
//	-debug            Enable debug logging
//
// Example:
//
//	GEMINI_API_KEY=... menuexport -image bistro.jpg -format pdf
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Lixing-Zhang/menu-extractor/internal/app"
	"github.com/Lixing-Zhang/menu-extractor/internal/config"
	"github.com/Lixing-Zhang/menu-extractor/internal/extraction"
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
	"github.com/Lixing-Zhang/menu-extractor/internal/pipeline"
	"github.com/Lixing-Zhang/menu-extractor/internal/render"
	"github.com/Lixing-Zhang/menu-extractor/pkg/logger"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	imagePath    string
	responsePath string
	format       string
	out          string
	overwrite    bool
	debug        bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	flags := flag.NewFlagSet("menuexport", flag.ContinueOnError)
	flags.SetOutput(stderr)

	o := &options{}
	flags.StringVar(&o.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&o.imagePath, "image", "", "Menu photo (PNG, JPEG, GIF or WEBP)")
	flags.StringVar(&o.responsePath, "response", "", "Saved extraction response to use instead of calling the service")
	flags.StringVar(&o.format, "format", "html", "Output format: html, pdf or json")
	flags.StringVar(&o.out, "out", "", `Output path, "-" for stdout`)
	flags.BoolVar(&o.overwrite, "overwrite", false, "Overwrite the output file if it exists")
	flags.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if o.imagePath == "" && o.responsePath == "" {
		return nil, errors.New("must provide -image or -response")
	}
	switch o.format {
	case "html", "pdf", "json":
	default:
		return nil, fmt.Errorf("unknown format %q", o.format)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	level := "warn"
	if o.debug {
		level = "debug"
	}
	log := logger.NewWithWriter(stderr, level)

	deps, err := app.NewDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	session := pipeline.NewSession("menuexport", deps)
	defer session.Close()

	if o.imagePath != "" {
		data, err := os.ReadFile(o.imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		if _, err := session.Ingest(ctx, pipeline.Upload{Data: data, Filename: o.imagePath}); err != nil {
			return userError(err)
		}
	}

	if o.responsePath != "" {
		raw, err := os.ReadFile(o.responsePath)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		doc, repairs, err := extraction.NewNormalizer(nil).NormalizeWithReport(string(raw))
		if err != nil {
			return userError(err)
		}
		session.Load(ctx, doc, repairs)
	} else if _, err := session.Extract(ctx); err != nil {
		return userError(err)
	}

	// the export uses the derived theme, not the fallback
	session.Wait()
	state := session.Snapshot()

	for _, w := range state.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	if state.Advisory != "" {
		fmt.Fprintf(stderr, "note: %s\n", state.Advisory)
	}

	body, name, err := encode(o.format, state.Document, state.Theme)
	if err != nil {
		return err
	}

	out := o.out
	if out == "" {
		// derived names land in the working directory
		out = filepath.Base(name)
	}
	if out == "-" {
		_, err := stdout.Write(body)
		return err
	}
	if _, err := os.Stat(out); err == nil && !o.overwrite {
		return fmt.Errorf("output file %s already exists, use -overwrite to overwrite", out)
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", out)
	return nil
}

// encode renders doc in format and returns the default file name for it
func encode(format string, doc *models.MenuDocument, theme models.ColorTheme) ([]byte, string, error) {
	base := strings.TrimSuffix(render.Filename(doc.RestaurantName), ".html")

	switch format {
	case "json":
		body, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, "", err
		}
		return append(body, '\n'), base + ".json", nil
	case "pdf":
		body, err := render.PDF(doc, theme)
		return body, base + ".pdf", err
	default:
		html, err := render.Standalone(doc, theme)
		return []byte(html), base + ".html", err
	}
}

func userError(err error) error {
	var ie *pipeline.InputError
	if errors.As(err, &ie) {
		return errors.New(ie.UserMessage())
	}
	if msg := extraction.UserMessage(err); msg != "" {
		return errors.New(msg)
	}
	return err
}

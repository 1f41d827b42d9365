// Package pipeline sequences image ingestion, theme derivation, extraction,
// normalization and rendering for one editing session.
//
// A Session owns the current image and everything derived from it. Results of
// asynchronous work are tagged with the image generation they were started
// for and dropped when the image has changed in the meantime.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Lixing-Zhang/menu-extractor/internal/extraction"
	"github.com/Lixing-Zhang/menu-extractor/internal/menu"
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
	"github.com/Lixing-Zhang/menu-extractor/internal/render"
	"github.com/Lixing-Zhang/menu-extractor/internal/theme"
)

var (
	ErrNoImage    = errors.New("no image has been uploaded")
	ErrNoDocument = errors.New("no menu document")
	ErrStale      = errors.New("result discarded: the session changed while it was computed")
)

// Status of one of the two asynchronous tracks
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// State is an immutable view of a session
type State struct {
	ID         string               `json:"id"`
	Generation uint64               `json:"generation"`
	HasImage   bool                 `json:"hasImage"`
	ImageType  string               `json:"imageType,omitempty"`
	ImageSize  int                  `json:"imageSize,omitempty"`
	Document   *models.MenuDocument `json:"document"`
	Theme      models.ColorTheme    `json:"theme"`
	HTML       string               `json:"html"`
	Color      Status               `json:"colorStatus"`
	Extraction Status               `json:"extractionStatus"`
	Error      string               `json:"error,omitempty"`
	Advisory   string               `json:"advisory,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// Deps are the collaborators of a session
type Deps struct {
	Extractor     extraction.Extractor
	Normalizer    *extraction.Normalizer
	Deriver       *theme.Deriver
	Editor        *menu.Editor
	Logger        *slog.Logger
	MaxImageBytes int64
}

// Session is the single owner of one image and its derived state
type Session struct {
	id   string
	deps Deps

	mu          sync.Mutex
	generation  uint64
	extractSeq  uint64
	image       []byte
	imageType   string
	doc         *models.MenuDocument
	theme       *models.ColorTheme
	html        string
	color       Status
	extract     Status
	err         string
	advisory    string
	warnings    []string
	updatedAt   time.Time
	cancelColor context.CancelFunc

	wg sync.WaitGroup
}

// NewSession creates an empty session. Missing collaborators get defaults,
// except the Extractor: without one Extract fails.
func NewSession(id string, deps Deps) *Session {
	if deps.Normalizer == nil {
		deps.Normalizer = extraction.NewNormalizer(nil)
	}
	if deps.Editor == nil {
		deps.Editor = menu.NewEditor(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Deriver == nil {
		deps.Deriver = theme.NewDeriver(nil, theme.MaxPalette, 0, deps.Logger)
	}
	return &Session{
		id:        id,
		deps:      deps,
		color:     StatusEmpty,
		extract:   StatusEmpty,
		updatedAt: time.Now(),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Ingest validates u and makes it the current image. Everything derived from
// a previous image is discarded and theme derivation starts in the background.
// An invalid upload leaves the session untouched.
func (s *Session) Ingest(ctx context.Context, u Upload) (State, error) {
	mimeType, err := Validate(u, s.deps.MaxImageBytes)
	if err != nil {
		return s.Snapshot(), err
	}

	data := make([]byte, len(u.Data))
	copy(data, u.Data)

	s.mu.Lock()
	s.clearLocked()
	s.image = data
	s.imageType = mimeType
	s.color = StatusPending
	gen := s.generation

	colorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelColor = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.deps.Logger.InfoContext(ctx, "image ingested",
		"session_id", s.id,
		"generation", gen,
		"mime_type", mimeType,
		"bytes", len(data),
	)

	go func() {
		defer s.wg.Done()
		defer cancel()
		out := s.deps.Deriver.Derive(colorCtx, theme.FromBytes(data))
		s.applyTheme(colorCtx, gen, out)
	}()

	return s.Snapshot(), nil
}

func (s *Session) applyTheme(ctx context.Context, gen uint64, out theme.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.deps.Logger.DebugContext(ctx, "dropping stale theme", "session_id", s.id, "generation", gen)
		return
	}

	t := out.Theme
	s.theme = &t
	s.color = StatusReady
	var de *theme.DerivationError
	if errors.As(out.Err, &de) {
		s.color = StatusFailed
		s.advisory = de.Advisory()
	}
	if s.doc != nil {
		s.renderLocked(ctx)
	}
	s.touchLocked()
}

// Extract sends the current image to the extraction service and replaces the
// document with the normalized result. A failure clears the document.
// ErrStale is returned when the image changed or another extraction started
// before this one finished; its result is dropped.
func (s *Session) Extract(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.image == nil {
		s.mu.Unlock()
		return s.Snapshot(), ErrNoImage
	}
	gen := s.generation
	s.extractSeq++
	seq := s.extractSeq
	image, mimeType := s.image, s.imageType
	s.extract = StatusPending
	s.err = ""
	s.touchLocked()
	s.mu.Unlock()

	start := time.Now()
	doc, repairs, err := s.run(ctx, image, mimeType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || seq != s.extractSeq {
		s.deps.Logger.InfoContext(ctx, "dropping stale extraction result",
			"session_id", s.id,
			"generation", gen,
		)
		return s.snapshotLocked(), ErrStale
	}

	if err != nil {
		s.failLocked(err)
		s.touchLocked()
		s.deps.Logger.ErrorContext(ctx, "menu extraction failed",
			"session_id", s.id,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return s.snapshotLocked(), err
	}

	s.doc = doc
	s.extract = StatusReady
	s.warnings = warningsFrom(repairs)
	s.renderLocked(ctx)
	s.touchLocked()

	stats := menu.Count(doc)
	s.deps.Logger.InfoContext(ctx, "menu extracted",
		"session_id", s.id,
		"categories", stats.Categories,
		"items", stats.Items,
		"repairs", len(repairs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s.snapshotLocked(), nil
}

func (s *Session) run(ctx context.Context, image []byte, mimeType string) (*models.MenuDocument, []extraction.Repair, error) {
	if s.deps.Extractor == nil {
		return nil, nil, extraction.ErrMissingCredential
	}
	raw, err := s.deps.Extractor.Extract(ctx, image, mimeType)
	if err != nil {
		return nil, nil, err
	}
	return s.deps.Normalizer.NormalizeWithReport(raw)
}

// Load replaces the document with one produced outside the extraction
// service, such as a saved extraction response.
func (s *Session) Load(ctx context.Context, doc *models.MenuDocument, repairs []extraction.Repair) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extractSeq++
	s.doc = doc
	s.extract = StatusReady
	s.err = ""
	s.warnings = warningsFrom(repairs)
	s.renderLocked(ctx)
	s.touchLocked()
	return s.snapshotLocked()
}

// Fail records a document that could not be produced outside the extraction
// service. Like a failed extraction it clears the document, and it supersedes
// any extraction still in flight.
func (s *Session) Fail(ctx context.Context, err error) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extractSeq++
	s.failLocked(err)
	s.touchLocked()
	s.deps.Logger.WarnContext(ctx, "menu load failed", "session_id", s.id, "error", err)
	return s.snapshotLocked()
}

func (s *Session) failLocked(err error) {
	s.doc = nil
	s.html = ""
	s.warnings = nil
	s.extract = StatusFailed
	s.err = extraction.UserMessage(err)
	if s.err == "" {
		s.err = "The menu could not be extracted. Please try again."
	}
}

// EditFunc is one of the document operations of menu.Editor
type EditFunc func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument

// Edit applies fn to the current document and re-renders. Edits never
// trigger extraction, and a pending extraction finishing after an edit is
// dropped as stale. An edit that returns the same document is a no-op.
func (s *Session) Edit(ctx context.Context, fn EditFunc) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.deps.Editor, s.doc)
	if next == s.doc {
		return s.snapshotLocked()
	}

	// the edited document supersedes any extraction still in flight
	s.extractSeq++
	s.doc = next
	s.extract = StatusReady
	s.err = ""
	s.renderLocked(ctx)
	s.touchLocked()
	return s.snapshotLocked()
}

// Reset discards the image and everything derived from it
func (s *Session) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.touchLocked()
	return s.snapshotLocked()
}

// Close stops background work and waits for it to finish
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancelColor != nil {
		s.cancelColor()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Wait blocks until background theme derivation has finished
func (s *Session) Wait() {
	s.wg.Wait()
}

// Theme returns the derived theme, or the fallback while none is available
func (s *Session) Theme() models.ColorTheme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.themeLocked()
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdatedAt is the time of the last state change
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) clearLocked() {
	if s.cancelColor != nil {
		s.cancelColor()
		s.cancelColor = nil
	}
	s.generation++
	s.image = nil
	s.imageType = ""
	s.doc = nil
	s.theme = nil
	s.html = ""
	s.color = StatusEmpty
	s.extract = StatusEmpty
	s.err = ""
	s.advisory = ""
	s.warnings = nil
}

func (s *Session) themeLocked() models.ColorTheme {
	if s.theme == nil {
		return models.FallbackTheme()
	}
	t := *s.theme
	t.Palette = append([]string(nil), s.theme.Palette...)
	return t
}

func (s *Session) renderLocked(ctx context.Context) {
	html, err := render.Editable(s.doc, s.themeLocked())
	if err != nil {
		s.deps.Logger.ErrorContext(ctx, "failed to render menu", "session_id", s.id, "error", err)
		html = ""
	}
	s.html = html
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now()
}

func (s *Session) snapshotLocked() State {
	st := State{
		ID:         s.id,
		Generation: s.generation,
		HasImage:   s.image != nil,
		ImageType:  s.imageType,
		ImageSize:  len(s.image),
		Document:   menu.Clone(s.doc),
		Theme:      s.themeLocked(),
		HTML:       s.html,
		Color:      s.color,
		Extraction: s.extract,
		Error:      s.err,
		Advisory:   s.advisory,
		UpdatedAt:  s.updatedAt,
	}
	if len(s.warnings) > 0 {
		st.Warnings = append([]string(nil), s.warnings...)
	}
	return st
}

func warningsFrom(repairs []extraction.Repair) []string {
	if len(repairs) == 0 {
		return nil
	}
	out := make([]string, 0, len(repairs))
	for _, r := range repairs {
		out = append(out, r.String())
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/menu-extractor/internal/extraction"
	"github.com/Lixing-Zhang/menu-extractor/internal/idgen"
	"github.com/Lixing-Zhang/menu-extractor/internal/menu"
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
	"github.com/Lixing-Zhang/menu-extractor/internal/pipeline"
	"github.com/Lixing-Zhang/menu-extractor/internal/render"
	"github.com/Lixing-Zhang/menu-extractor/internal/repository"
)

var (
	ErrNoImage    = pipeline.ErrNoImage
	ErrNoDocument = pipeline.ErrNoDocument
)

// Export is a rendered menu ready for download
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// MenuService handles business logic for menu editing sessions
type MenuService struct {
	repo   repository.SessionRepository
	deps   pipeline.Deps
	newID  idgen.Generator
	logger *slog.Logger
}

// NewMenuService creates a new menu service. deps is shared by every session
// it creates.
func NewMenuService(repo repository.SessionRepository, deps pipeline.Deps, gen idgen.Generator, logger *slog.Logger) *MenuService {
	if gen == nil {
		gen = idgen.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &MenuService{
		repo:   repo,
		deps:   deps,
		newID:  gen,
		logger: logger,
	}
}

// CreateSession starts an empty editing session
func (s *MenuService) CreateSession(ctx context.Context) (pipeline.State, error) {
	session := pipeline.NewSession(s.newID(), s.deps)
	if err := s.repo.Create(ctx, session); err != nil {
		return pipeline.State{}, fmt.Errorf("failed to store session: %w", err)
	}
	s.logger.InfoContext(ctx, "session created", "session_id", session.ID())
	return session.Snapshot(), nil
}

// GetSession returns the current state of a session
func (s *MenuService) GetSession(ctx context.Context, id string) (pipeline.State, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.State{}, err
	}
	return session.Snapshot(), nil
}

// DeleteSession removes a session and stops its background work
func (s *MenuService) DeleteSession(ctx context.Context, id string) error {
	session, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	session.Close()
	s.logger.InfoContext(ctx, "session deleted", "session_id", id)
	return nil
}

// SweepIdle deletes sessions idle for longer than maxIdle
func (s *MenuService) SweepIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	removed, err := s.repo.DeleteIdle(ctx, time.Now().Add(-maxIdle))
	if err != nil {
		return 0, err
	}
	for _, session := range removed {
		session.Close()
	}
	if len(removed) > 0 {
		s.logger.InfoContext(ctx, "idle sessions removed", "count", len(removed))
	}
	return len(removed), nil
}

// Close stops every session
func (s *MenuService) Close(ctx context.Context) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return
	}
	for _, session := range sessions {
		session.Close()
	}
}

// UploadImage makes u the current image of the session
func (s *MenuService) UploadImage(ctx context.Context, id string, u pipeline.Upload) (pipeline.State, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.State{}, err
	}
	return session.Ingest(ctx, u)
}

// Extract runs extraction on the current image
func (s *MenuService) Extract(ctx context.Context, id string) (pipeline.State, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.State{}, err
	}
	return session.Extract(ctx)
}

// LoadResponse normalizes a raw extraction response, such as a saved one,
// and makes it the session's document. A response that cannot be normalized
// clears the document the same way a failed extraction does.
func (s *MenuService) LoadResponse(ctx context.Context, id, raw string) (pipeline.State, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.State{}, err
	}

	normalizer := s.deps.Normalizer
	if normalizer == nil {
		normalizer = extraction.NewNormalizer(nil)
	}
	doc, repairs, err := normalizer.NormalizeWithReport(raw)
	if err != nil {
		return session.Fail(ctx, err), err
	}
	return session.Load(ctx, doc, repairs), nil
}

// Reset discards the image and everything derived from it
func (s *MenuService) Reset(ctx context.Context, id string) (pipeline.State, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.State{}, err
	}
	return session.Reset(), nil
}

// RenameRestaurant sets the restaurant name
func (s *MenuService) RenameRestaurant(ctx context.Context, id, name string) (pipeline.State, error) {
	return s.editDocument(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		return e.RenameRestaurant(doc, name)
	})
}

// AddCategory appends a category, creating the document when there is none
func (s *MenuService) AddCategory(ctx context.Context, id string) (pipeline.State, error) {
	return s.edit(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		return e.AddCategory(doc)
	})
}

// EditCategory applies patch to a category
func (s *MenuService) EditCategory(ctx context.Context, id, categoryID string, patch models.CategoryPatch) (pipeline.State, error) {
	return s.editDocument(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		return e.EditCategory(doc, categoryID, patch)
	})
}

// RemoveCategory removes a category
func (s *MenuService) RemoveCategory(ctx context.Context, id, categoryID string) (pipeline.State, error) {
	return s.editDocument(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		return e.RemoveCategory(doc, categoryID)
	})
}

// AddItem appends a default item to a category
func (s *MenuService) AddItem(ctx context.Context, id, categoryID string) (pipeline.State, error) {
	return s.editDocument(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		return e.AddItem(doc, categoryID)
	})
}

// EditItem applies patch to an item
func (s *MenuService) EditItem(ctx context.Context, id, categoryID, itemID string, patch models.ItemPatch) (pipeline.State, error) {
	return s.editDocument(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		return e.EditItem(doc, categoryID, itemID, patch)
	})
}

// RemoveItem removes an item
func (s *MenuService) RemoveItem(ctx context.Context, id, categoryID, itemID string) (pipeline.State, error) {
	return s.editDocument(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		return e.RemoveItem(doc, categoryID, itemID)
	})
}

// Preview returns the editable HTML projection
func (s *MenuService) Preview(ctx context.Context, id string) (string, error) {
	state, err := s.documentState(ctx, id)
	if err != nil {
		return "", err
	}
	return state.HTML, nil
}

// ExportHTML renders the standalone document offered for download
func (s *MenuService) ExportHTML(ctx context.Context, id string) (*Export, error) {
	state, err := s.documentState(ctx, id)
	if err != nil {
		return nil, err
	}

	html, err := render.Standalone(state.Document, state.Theme)
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}
	return &Export{
		Filename:    render.Filename(state.Document.RestaurantName),
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
	}, nil
}

// ExportPDF renders the static menu as a PDF
func (s *MenuService) ExportPDF(ctx context.Context, id string) (*Export, error) {
	state, err := s.documentState(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := render.PDF(state.Document, state.Theme)
	if err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	name := render.Filename(state.Document.RestaurantName)
	return &Export{
		Filename:    name[:len(name)-len(".html")] + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

func (s *MenuService) documentState(ctx context.Context, id string) (pipeline.State, error) {
	state, err := s.GetSession(ctx, id)
	if err != nil {
		return pipeline.State{}, err
	}
	if state.Document == nil {
		return pipeline.State{}, ErrNoDocument
	}
	return state, nil
}

func (s *MenuService) edit(ctx context.Context, id string, fn pipeline.EditFunc) (pipeline.State, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return pipeline.State{}, err
	}
	return session.Edit(ctx, fn), nil
}

// editDocument is edit for operations that need an existing document
func (s *MenuService) editDocument(ctx context.Context, id string, fn pipeline.EditFunc) (pipeline.State, error) {
	var missing bool
	state, err := s.edit(ctx, id, func(e *menu.Editor, doc *models.MenuDocument) *models.MenuDocument {
		if doc == nil {
			missing = true
			return nil
		}
		return fn(e, doc)
	})
	if err != nil {
		return pipeline.State{}, err
	}
	if missing {
		return state, ErrNoDocument
	}
	return state, nil
}

// IsNotFound reports whether err means the session does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrSessionNotFound)
}

// SessionCount reports how many sessions are live
func (s *MenuService) SessionCount(ctx context.Context) (int, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

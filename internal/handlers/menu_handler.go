package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/menu-extractor/internal/extraction"
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
	"github.com/Lixing-Zhang/menu-extractor/internal/pipeline"
	"github.com/Lixing-Zhang/menu-extractor/internal/service"
)

// MenuHandler handles menu session HTTP requests
type MenuHandler struct {
	menuService *service.MenuService
	maxUpload   int64
	log         *slog.Logger
}

// NewMenuHandler creates a new menu handler; maxUpload bounds image uploads
func NewMenuHandler(menuService *service.MenuService, maxUpload int64, log *slog.Logger) *MenuHandler {
	if maxUpload <= 0 {
		maxUpload = pipeline.MaxImageBytes
	}
	return &MenuHandler{
		menuService: menuService,
		maxUpload:   maxUpload,
		log:         log,
	}
}

type renameRequest struct {
	RestaurantName *string `json:"restaurantName"`
}

// Routes registers the session endpoints on r
func (h *MenuHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateSession)
	r.Route("/{sessionId}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/image", h.UploadImage)
		r.Post("/extract", h.Extract)
		r.Put("/document", h.LoadDocument)
		r.Post("/reset", h.Reset)
		r.Put("/restaurant", h.RenameRestaurant)

		r.Post("/categories", h.AddCategory)
		r.Patch("/categories/{categoryId}", h.EditCategory)
		r.Delete("/categories/{categoryId}", h.RemoveCategory)
		r.Post("/categories/{categoryId}/items", h.AddItem)
		r.Patch("/categories/{categoryId}/items/{itemId}", h.EditItem)
		r.Delete("/categories/{categoryId}/items/{itemId}", h.RemoveItem)

		r.Get("/preview", h.Preview)
		r.Get("/export", h.ExportHTML)
		r.Get("/clipboard", h.Clipboard)
		r.Get("/export.pdf", h.ExportPDF)
	})
}

// CreateSession handles POST /api/sessions
func (h *MenuHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.CreateSession(r.Context())
	if err != nil {
		h.fail(w, r, "failed to create session", err)
		return
	}
	WriteJSON(w, http.StatusCreated, state, h.log)
}

// GetSession handles GET /api/sessions/{sessionId}
func (h *MenuHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, r, "failed to get session", err)
		return
	}
	WriteJSON(w, http.StatusOK, state, h.log)
}

// DeleteSession handles DELETE /api/sessions/{sessionId}
func (h *MenuHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.menuService.DeleteSession(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		h.fail(w, r, "failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/sessions/{sessionId}/image.
// The image is either the "image" field of a multipart form or the raw body.
func (h *MenuHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, "failed to read upload", err)
		return
	}

	state, err := h.menuService.UploadImage(r.Context(), chi.URLParam(r, "sessionId"), upload)
	if err != nil {
		h.fail(w, r, "image rejected", err)
		return
	}
	WriteJSON(w, http.StatusOK, state, h.log)
}

func (h *MenuHandler) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Upload, error) {
	// room for the multipart envelope on top of the image itself
	limit := h.maxUpload + 1<<20

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		data, err := readBody(w, r, limit)
		if err != nil {
			return pipeline.Upload{}, err
		}
		return pipeline.Upload{Data: data, ContentType: declaredType(r.Header.Get("Content-Type"))}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return pipeline.Upload{}, err
		}
		return pipeline.Upload{}, &pipeline.InputError{Reason: "The request must contain an \"image\" file."}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.Upload{}, err
	}
	return pipeline.Upload{
		Data:        data,
		ContentType: declaredType(header.Header.Get("Content-Type")),
		Filename:    header.Filename,
	}, nil
}

// declaredType drops generic content types so the image is judged by its bytes
func declaredType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == "application/octet-stream" {
		return ""
	}
	return contentType
}

// Extract handles POST /api/sessions/{sessionId}/extract
func (h *MenuHandler) Extract(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.Extract(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, r, "extraction failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, state, h.log)
}

// LoadDocument handles PUT /api/sessions/{sessionId}/document. The body is
// an extraction response, such as a previously saved one.
func (h *MenuHandler) LoadDocument(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r, maxJSONBody)
	if err != nil {
		h.fail(w, r, "failed to read document", err)
		return
	}

	state, err := h.menuService.LoadResponse(r.Context(), chi.URLParam(r, "sessionId"), string(raw))
	if err != nil {
		var fe *extraction.FormatError
		if errors.As(err, &fe) {
			WriteError(w, http.StatusBadRequest, fe.UserMessage(), h.log)
			return
		}
		h.fail(w, r, "failed to load document", err)
		return
	}
	WriteJSON(w, http.StatusOK, state, h.log)
}

// Reset handles POST /api/sessions/{sessionId}/reset
func (h *MenuHandler) Reset(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.Reset(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, r, "failed to reset session", err)
		return
	}
	WriteJSON(w, http.StatusOK, state, h.log)
}

// RenameRestaurant handles PUT /api/sessions/{sessionId}/restaurant
func (h *MenuHandler) RenameRestaurant(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RestaurantName == nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	state, err := h.menuService.RenameRestaurant(r.Context(), chi.URLParam(r, "sessionId"), *req.RestaurantName)
	h.respond(w, r, state, err)
}

// AddCategory handles POST /api/sessions/{sessionId}/categories
func (h *MenuHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.AddCategory(r.Context(), chi.URLParam(r, "sessionId"))
	h.respond(w, r, state, err)
}

// EditCategory handles PATCH /api/sessions/{sessionId}/categories/{categoryId}
func (h *MenuHandler) EditCategory(w http.ResponseWriter, r *http.Request) {
	var patch models.CategoryPatch
	if err := decodeJSON(w, r, &patch); err != nil || patch.CategoryName == nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	state, err := h.menuService.EditCategory(r.Context(),
		chi.URLParam(r, "sessionId"),
		chi.URLParam(r, "categoryId"),
		patch,
	)
	h.respond(w, r, state, err)
}

// RemoveCategory handles DELETE /api/sessions/{sessionId}/categories/{categoryId}
func (h *MenuHandler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.RemoveCategory(r.Context(),
		chi.URLParam(r, "sessionId"),
		chi.URLParam(r, "categoryId"),
	)
	h.respond(w, r, state, err)
}

// AddItem handles POST /api/sessions/{sessionId}/categories/{categoryId}/items
func (h *MenuHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.AddItem(r.Context(),
		chi.URLParam(r, "sessionId"),
		chi.URLParam(r, "categoryId"),
	)
	h.respond(w, r, state, err)
}

// EditItem handles PATCH /api/sessions/{sessionId}/categories/{categoryId}/items/{itemId}
func (h *MenuHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	var patch models.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil || patch.IsEmpty() {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	state, err := h.menuService.EditItem(r.Context(),
		chi.URLParam(r, "sessionId"),
		chi.URLParam(r, "categoryId"),
		chi.URLParam(r, "itemId"),
		patch,
	)
	h.respond(w, r, state, err)
}

// RemoveItem handles DELETE /api/sessions/{sessionId}/categories/{categoryId}/items/{itemId}
func (h *MenuHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	state, err := h.menuService.RemoveItem(r.Context(),
		chi.URLParam(r, "sessionId"),
		chi.URLParam(r, "categoryId"),
		chi.URLParam(r, "itemId"),
	)
	h.respond(w, r, state, err)
}

// Preview handles GET /api/sessions/{sessionId}/preview
func (h *MenuHandler) Preview(w http.ResponseWriter, r *http.Request) {
	html, err := h.menuService.Preview(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, r, "failed to render preview", err)
		return
	}
	WriteBody(w, http.StatusOK, "text/html; charset=utf-8", []byte(html), h.log)
}

// ExportHTML handles GET /api/sessions/{sessionId}/export
func (h *MenuHandler) ExportHTML(w http.ResponseWriter, r *http.Request) {
	export, err := h.menuService.ExportHTML(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, r, "failed to export menu", err)
		return
	}
	WriteAttachment(w, export.Filename, export.ContentType, export.Body, h.log)
}

// Clipboard handles GET /api/sessions/{sessionId}/clipboard: the exported
// document as plain text, ready to be copied.
func (h *MenuHandler) Clipboard(w http.ResponseWriter, r *http.Request) {
	export, err := h.menuService.ExportHTML(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, r, "failed to export menu", err)
		return
	}
	WriteBody(w, http.StatusOK, "text/plain; charset=utf-8", export.Body, h.log)
}

// ExportPDF handles GET /api/sessions/{sessionId}/export.pdf
func (h *MenuHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	export, err := h.menuService.ExportPDF(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, r, "failed to export pdf", err)
		return
	}
	WriteAttachment(w, export.Filename, export.ContentType, export.Body, h.log)
}

func (h *MenuHandler) respond(w http.ResponseWriter, r *http.Request, state pipeline.State, err error) {
	if err != nil {
		h.fail(w, r, "failed to edit menu", err)
		return
	}
	WriteJSON(w, http.StatusOK, state, h.log)
}

func (h *MenuHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, userMsg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, "session_id", chi.URLParam(r, "sessionId"), "status", status, "error", err)
	} else {
		h.log.Warn(msg, "session_id", chi.URLParam(r, "sessionId"), "status", status, "error", err)
	}
	WriteError(w, status, userMsg, h.log)
}

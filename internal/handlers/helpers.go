package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Lixing-Zhang/menu-extractor/internal/extraction"
	"github.com/Lixing-Zhang/menu-extractor/internal/pipeline"
	"github.com/Lixing-Zhang/menu-extractor/internal/repository"
)

const maxJSONBody = 1 << 20

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// readBody reads at most limit bytes of the request body
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return io.ReadAll(r.Body)
}

// errorStatus maps a service error to an HTTP status and a user-facing message
func errorStatus(err error) (int, string) {
	var (
		inputErr  *pipeline.InputError
		formatErr *extraction.FormatError
		svcErr    *extraction.ServiceError
		maxErr    *http.MaxBytesError
	)

	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, inputErr.UserMessage()
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "Request body is too large"
	case errors.Is(err, pipeline.ErrNoImage):
		return http.StatusConflict, "Upload a menu image first"
	case errors.Is(err, pipeline.ErrNoDocument):
		return http.StatusConflict, "There is no menu to edit or export yet"
	case errors.Is(err, pipeline.ErrStale):
		return http.StatusConflict, "The image changed while the menu was being extracted"
	case errors.As(err, &formatErr):
		return http.StatusBadGateway, formatErr.UserMessage()
	case errors.As(err, &svcErr):
		if svcErr.Kind == extraction.KindBlocked {
			return http.StatusUnprocessableEntity, svcErr.UserMessage()
		}
		return http.StatusBadGateway, svcErr.UserMessage()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

package internal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"construction-api/internal/models"
	"construction-api/internal/store"
)

// maxBodyBytes caps request bodies at 100 KiB.
const maxBodyBytes = 100 << 10

var errTrailingData = errors.New("invalid JSON: unexpected data after the request body")

// creator is a create payload that can produce a new document.
type creator[T any] interface {
	Build(now time.Time) T
}

// patcher is an update payload listing the fields it overwrites.
type patcher interface {
	Fields() map[string]any
}

// resourceHandler serves list/create/get/update/delete for one collection.
// T is the stored document, C the create payload and P the update payload.
type resourceHandler[T store.Document, C creator[T], P patcher] struct {
	name   string
	repo   store.Repository[T]
	logger *zap.Logger
	now    func() time.Time
}

func newResourceHandler[T store.Document, C creator[T], P patcher](name string, repo store.Repository[T], logger *zap.Logger) *resourceHandler[T, C, P] {
	return &resourceHandler[T, C, P]{
		name:   name,
		repo:   repo,
		logger: logger.With(zap.String("resource", name)),
		now:    time.Now,
	}
}

func (h *resourceHandler[T, C, P]) routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

func (h *resourceHandler[T, C, P]) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.repo.List(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *resourceHandler[T, C, P]) create(w http.ResponseWriter, r *http.Request) {
	var in C
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, http.StatusBadRequest, models.DecodeError(h.name, err))
		return
	}
	if err := models.Validate(h.name, in); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}

	doc := in.Build(h.now())
	if err := h.repo.Insert(r.Context(), doc); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *resourceHandler[T, C, P]) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.FindByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, h.notFound())
		return
	}
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// update applies a partial update. Only the submitted fields are validated;
// the untouched ones were valid when stored, so the merged document is too.
func (h *resourceHandler[T, C, P]) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in P
	if err := decodeBody(w, r, &in); err != nil {
		h.rejectUpdate(w, r, id, models.DecodeError(h.name, err))
		return
	}
	if err := models.Validate(h.name, in); err != nil {
		h.rejectUpdate(w, r, id, err)
		return
	}

	doc, err := h.repo.Update(r.Context(), id, in.Fields())
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, h.notFound())
		return
	}
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// rejectUpdate reports a bad update body, unless the target does not exist,
// in which case not-found takes precedence.
func (h *resourceHandler[T, C, P]) rejectUpdate(w http.ResponseWriter, r *http.Request, id string, cause error) {
	if _, err := h.repo.FindByID(r.Context(), id); errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, h.notFound())
		return
	}
	h.fail(w, r, http.StatusBadRequest, cause)
}

func (h *resourceHandler[T, C, P]) remove(w http.ResponseWriter, r *http.Request) {
	err := h.repo.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, h.notFound())
		return
	}
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeMessage(w, http.StatusOK, h.name+" deleted successfully")
}

func (h *resourceHandler[T, C, P]) notFound() string {
	return h.name + " not found"
}

// fail writes {"message": err} and logs server-side failures.
func (h *resourceHandler[T, C, P]) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Store operation failed", fields...)
	} else {
		h.logger.Debug("Request rejected", fields...)
	}
	writeMessage(w, status, err.Error())
}

// decodeBody decodes a JSON request body into v. An empty body decodes as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	// Anything after the first value makes the body invalid.
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errTrailingData
	}
}

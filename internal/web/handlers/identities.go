package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facekit/livematch/internal/catalogue"
	"github.com/facekit/livematch/internal/recognizer"
)

// maxEnrollmentBytes caps the multipart image accepted for enrollment.
const maxEnrollmentBytes = 10 << 20

// Registrar is the encoder capability the enrollment path depends on.
type Registrar interface {
	Register(ctx context.Context, image []byte, name string) (recognizer.Enrollment, error)
}

// IdentitiesHandler manages the identity catalogue over HTTP.
type IdentitiesHandler struct {
	store     catalogue.Store
	registrar Registrar
	timeout   time.Duration

	// onChange runs after every successful catalogue mutation, so a
	// derived index can pick up the new state. May be nil.
	onChange func(ctx context.Context)
}

// NewIdentitiesHandler creates an identities handler. onChange may be nil.
func NewIdentitiesHandler(store catalogue.Store, registrar Registrar, timeout time.Duration, onChange func(ctx context.Context)) *IdentitiesHandler {
	return &IdentitiesHandler{store: store, registrar: registrar, timeout: timeout, onChange: onChange}
}

type identityResponse struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Quality    string    `json:"quality,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

func toIdentityResponse(rec catalogue.IdentityRecord) identityResponse {
	return identityResponse{
		ID:         rec.ID,
		Label:      rec.Label,
		Confidence: rec.Confidence,
		Quality:    rec.Quality,
		EnrolledAt: rec.EnrolledAt,
	}
}

// Enroll registers a new identity from a multipart image and name. The
// image must contain exactly one face.
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxEnrollmentBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing name")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxEnrollmentBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading image")
		return
	}
	if len(image) > maxEnrollmentBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	enrollment, err := h.registrar.Register(ctx, image, name)
	if err != nil {
		status, msg := classifyRegisterError(err)
		respondError(w, status, msg)
		return
	}

	rec, err := h.store.Enroll(r.Context(), name, enrollment.Descriptor, catalogue.Metadata{
		Confidence: enrollment.Confidence,
		Quality:    enrollment.Quality,
	})
	if err != nil {
		switch {
		case errors.Is(err, catalogue.ErrDuplicateLabel):
			respondError(w, http.StatusConflict, "an active identity with this label already exists")
		case errors.Is(err, catalogue.ErrInvalidDescriptor):
			respondError(w, http.StatusBadRequest, "encoder returned a descriptor of unexpected dimensionality")
		default:
			log.Printf("identities: enrolling %s: %v", sanitizeForLog(name), err)
			respondError(w, http.StatusInternalServerError, "enrollment failed")
		}
		return
	}

	if h.onChange != nil {
		h.onChange(r.Context())
	}
	respondJSON(w, http.StatusCreated, toIdentityResponse(rec))
}

// List returns all active identities, most recently enrolled first.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListActive(r.Context())
	if err != nil {
		log.Printf("identities: listing: %v", err)
		respondError(w, http.StatusInternalServerError, "listing identities failed")
		return
	}

	out := make([]identityResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toIdentityResponse(rec))
	}
	respondJSON(w, http.StatusOK, map[string]any{"identities": out})
}

// Deactivate soft-deletes an identity. The label becomes reusable; the
// record never matches again.
func (h *IdentitiesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing identity ID")
		return
	}

	if err := h.store.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, catalogue.ErrNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		log.Printf("identities: deactivating %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "deactivation failed")
		return
	}

	if h.onChange != nil {
		h.onChange(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

func classifyRegisterError(err error) (int, string) {
	switch {
	case errors.Is(err, recognizer.ErrNoFace):
		return http.StatusBadRequest, "image must contain exactly one face"
	case errors.Is(err, recognizer.ErrTimeout):
		return http.StatusGatewayTimeout, "encoder timed out"
	case errors.Is(err, recognizer.ErrUnavailable):
		return http.StatusBadGateway, "encoder unavailable"
	default:
		return http.StatusBadGateway, "encoder failed"
	}
}

package review

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tdeslauriers/cantor/internal/auth"
	"github.com/tdeslauriers/cantor/internal/util"
	"github.com/tdeslauriers/cantor/pkg/api"
)

// Publisher is the consumer-side interface for the publish step this handler
// drives; it is satisfied by the publish package's Publisher and is declared
// here so review does not import publish, which imports review.
type Publisher interface {

	// Publish curates the pending song to the admin's ordered selection and
	// publishes it under a collision-free catalog key.
	Publish(ctx context.Context, songName string, selection []string) (*api.PublishResult, error)
}

// Handler is the interface for the admin review surface: listing pending
// songs and images, serving staged image bytes, submitting a curated
// selection, and deleting pending songs.
type Handler interface {

	// HandlePendingSongs handles the review-pending song listing request.
	HandlePendingSongs(w http.ResponseWriter, r *http.Request)

	// HandlePendingImages handles the request for one pending song's staged
	// image filenames.
	HandlePendingImages(w http.ResponseWriter, r *http.Request)

	// HandleImage handles the request for one staged image's bytes.
	HandleImage(w http.ResponseWriter, r *http.Request)

	// HandleCurate handles the curated-selection submission: curation then
	// publication, synchronously.
	HandleCurate(w http.ResponseWriter, r *http.Request)

	// HandleDelete handles deletion of a whole pending song directory.
	HandleDelete(w http.ResponseWriter, r *http.Request)
}

// NewHandler creates a new review handler instance, returning a pointer to
// the concrete implementation.
func NewHandler(s Service, p Publisher, v auth.Verifier) Handler {
	return &handler{
		svc:       s,
		publisher: p,
		verifier:  v,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageReview)).
			With(slog.String(util.ComponentKey, util.ComponentReviewHandler)),
	}
}

var _ Handler = (*handler)(nil)

// handler is the concrete implementation of the Handler interface.
type handler struct {
	svc       Service
	publisher Publisher
	verifier  auth.Verifier

	logger *slog.Logger
}

// HandlePendingSongs is the concrete implementation of the interface method
// which handles the review-pending song listing request.
func (h *handler) HandlePendingSongs(w http.ResponseWriter, r *http.Request) {

	if !h.authorized(w, r) {
		return
	}

	songs, err := h.svc.PendingSongs()
	if err != nil {
		h.logger.Error(fmt.Sprintf("/review/songs handler failed to list pending songs: %v", err))
		e := api.ErrHttp{
			StatusCode: http.StatusInternalServerError,
			Message:    "failed to list review songs",
		}
		e.SendJsonErr(w)
		return
	}

	h.sendJson(w, songs)
}

// HandlePendingImages is the concrete implementation of the interface
// method which handles the request for one pending song's image filenames.
func (h *handler) HandlePendingImages(w http.ResponseWriter, r *http.Request) {

	if !h.authorized(w, r) {
		return
	}

	songName, ok := h.songParam(w, r)
	if !ok {
		return
	}

	images, err := h.svc.PendingImages(songName)
	if err != nil {
		h.logger.Error(fmt.Sprintf("/review/songs/%s handler failed to list images: %v", songName, err))
		e := api.ErrHttp{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("review song '%s' not found", songName),
		}
		e.SendJsonErr(w)
		return
	}

	h.sendJson(w, images)
}

// HandleImage is the concrete implementation of the interface method which
// handles the request for one staged image's bytes.
func (h *handler) HandleImage(w http.ResponseWriter, r *http.Request) {

	if !h.authorized(w, r) {
		return
	}

	songName, ok := h.songParam(w, r)
	if !ok {
		return
	}

	imageName, err := url.PathUnescape(chi.URLParam(r, "image"))
	if err != nil || imageName == "" {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "invalid image name",
		}
		e.SendJsonErr(w)
		return
	}

	// optional review-grid thumbnail width
	width := 0
	if w := r.URL.Query().Get("w"); w != "" {
		if parsed, err := strconv.Atoi(w); err == nil && parsed > 0 {
			width = parsed
		}
	}

	data, err := h.svc.Image(songName, imageName, width)
	if err != nil {
		h.logger.Error(fmt.Sprintf("/review/songs/%s/images/%s handler failed to read image: %v", songName, imageName, err))
		e := api.ErrHttp{
			StatusCode: http.StatusNotFound,
			Message:    "image not found",
		}
		e.SendJsonErr(w)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		h.logger.Error(fmt.Sprintf("/review/songs/%s/images/%s handler failed to write image bytes: %v", songName, imageName, err))
	}
}

// HandleCurate is the concrete implementation of the interface method which
// handles the curated-selection submission.
func (h *handler) HandleCurate(w http.ResponseWriter, r *http.Request) {

	if !h.authorized(w, r) {
		return
	}

	songName, ok := h.songParam(w, r)
	if !ok {
		return
	}

	var cmd api.CurateCmd
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "invalid request body",
		}
		e.SendJsonErr(w)
		return
	}

	if err := cmd.Validate(); err != nil {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    err.Error(),
		}
		e.SendJsonErr(w)
		return
	}

	result, err := h.publisher.Publish(r.Context(), songName, cmd.Slides)
	if err != nil {
		// the one stage with a user waiting synchronously on the outcome: a
		// lost catalog write would silently drop a finished song, so the
		// admin is told to re-submit
		h.logger.Error(fmt.Sprintf("/review/songs/%s handler failed to publish: %v", songName, err))
		e := api.ErrHttp{
			StatusCode: http.StatusInternalServerError,
			Message:    fmt.Sprintf("failed to publish song '%s', please re-submit curation", songName),
		}
		e.SendJsonErr(w)
		return
	}

	h.sendJson(w, result)
}

// HandleDelete is the concrete implementation of the interface method which
// handles deletion of a pending song directory.
func (h *handler) HandleDelete(w http.ResponseWriter, r *http.Request) {

	if !h.authorized(w, r) {
		return
	}

	songName, ok := h.songParam(w, r)
	if !ok {
		return
	}

	deleted, err := h.svc.Delete(songName)
	if err != nil {
		h.logger.Error(fmt.Sprintf("/review/songs/%s handler failed to delete: %v", songName, err))
		e := api.ErrHttp{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("review song '%s' not found", songName),
		}
		e.SendJsonErr(w)
		return
	}

	h.sendJson(w, api.DeleteResult{
		SongName:    songName,
		DeletedPath: deleted,
	})
}

// authorized verifies the admin secret, sending the uniform 401 on failure.
func (h *handler) authorized(w http.ResponseWriter, r *http.Request) bool {

	if err := h.verifier.Verify(r); err != nil {
		h.logger.Error(fmt.Sprintf("review handler failed to authorize request: %v", err))
		e := api.ErrHttp{
			StatusCode: http.StatusUnauthorized,
			Message:    "invalid credentials",
		}
		e.SendJsonErr(w)
		return false
	}

	return true
}

// songParam extracts and validates the song path parameter.
func (h *handler) songParam(w http.ResponseWriter, r *http.Request) (string, bool) {

	songName, err := url.PathUnescape(chi.URLParam(r, "song"))
	if err != nil || songName == "" {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "invalid song name",
		}
		e.SendJsonErr(w)
		return "", false
	}

	return songName, true
}

// sendJson writes v as a json response body.
func (h *handler) sendJson(w http.ResponseWriter, v any) {

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(fmt.Sprintf("review handler failed to encode response: %v", err))
	}
}

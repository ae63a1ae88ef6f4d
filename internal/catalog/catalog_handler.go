package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/tdeslauriers/cantor/internal/util"
	"github.com/tdeslauriers/cantor/pkg/api"
)

// Handler is the interface for the public catalog read endpoints consumed
// by the browsing ui.
type Handler interface {

	// HandleSongs handles the catalog song name listing request.
	HandleSongs(w http.ResponseWriter, r *http.Request)

	// HandleSong handles the request for one song's image urls.
	HandleSong(w http.ResponseWriter, r *http.Request)
}

// NewHandler creates a new catalog handler instance, returning a pointer to
// the concrete implementation.
func NewHandler(s Store) Handler {
	return &handler{
		store: s,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageCatalog)).
			With(slog.String(util.ComponentKey, util.ComponentCatalogHandler)),
	}
}

var _ Handler = (*handler)(nil)

// handler is the concrete implementation of the Handler interface.
type handler struct {
	store Store

	logger *slog.Logger
}

// HandleSongs is the concrete implementation of the interface method which
// handles the catalog song name listing request.
func (h *handler) HandleSongs(w http.ResponseWriter, r *http.Request) {

	names, err := h.store.SongNames()
	if err != nil {
		h.logger.Error(fmt.Sprintf("/songs handler failed to read catalog: %v", err))
		e := api.ErrHttp{
			StatusCode: http.StatusInternalServerError,
			Message:    "failed to read catalog",
		}
		e.SendJsonErr(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(names); err != nil {
		h.logger.Error(fmt.Sprintf("/songs handler failed to encode response: %v", err))
	}
}

// HandleSong is the concrete implementation of the interface method which
// handles the request for one song's image urls.
func (h *handler) HandleSong(w http.ResponseWriter, r *http.Request) {

	name, err := url.PathUnescape(chi.URLParam(r, "song"))
	if err != nil || name == "" {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "invalid song name",
		}
		e.SendJsonErr(w)
		return
	}

	links, err := h.store.Links(name)
	if err != nil {
		if errors.Is(err, ErrSongNotFound) {
			e := api.ErrHttp{
				StatusCode: http.StatusNotFound,
				Message:    fmt.Sprintf("song '%s' not found", name),
			}
			e.SendJsonErr(w)
			return
		}

		h.logger.Error(fmt.Sprintf("/songs/%s handler failed to read catalog: %v", name, err))
		e := api.ErrHttp{
			StatusCode: http.StatusInternalServerError,
			Message:    "failed to read catalog",
		}
		e.SendJsonErr(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(links); err != nil {
		h.logger.Error(fmt.Sprintf("/songs/%s handler failed to encode response: %v", name, err))
	}
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tdeslauriers/cantor/internal/util"
	"github.com/tdeslauriers/cantor/pkg/api"
)

// Handler is the interface for the pipeline trigger endpoint.
type Handler interface {

	// HandleProcess handles the idempotent pipeline trigger request: it
	// starts a batch run if none is active and reports which happened.
	HandleProcess(w http.ResponseWriter, r *http.Request)
}

// NewHandler creates a new pipeline handler instance, returning a pointer
// to the concrete implementation.
func NewHandler(p Pipeline) Handler {
	return &handler{
		pipeline: p,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackagePipeline)).
			With(slog.String(util.ComponentKey, util.ComponentPipeline)),
	}
}

var _ Handler = (*handler)(nil)

// handler is the concrete implementation of the Handler interface.
type handler struct {
	pipeline Pipeline

	logger *slog.Logger
}

// HandleProcess is the concrete implementation of the interface method
// which handles the pipeline trigger request.
func (h *handler) HandleProcess(w http.ResponseWriter, r *http.Request) {

	msg := "processing started"
	if !h.pipeline.Trigger(context.Background()) {
		msg = "processing already in progress"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(api.ProcessStatus{Message: msg}); err != nil {
		h.logger.Error(fmt.Sprintf("/pipeline/process handler failed to encode response: %v", err))
	}
}

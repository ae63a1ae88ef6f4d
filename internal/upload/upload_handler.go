package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/tdeslauriers/cantor/internal/auth"
	"github.com/tdeslauriers/cantor/internal/pipeline"
	"github.com/tdeslauriers/cantor/internal/song"
	"github.com/tdeslauriers/cantor/internal/util"
	"github.com/tdeslauriers/cantor/pkg/api"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing; the
// rest spills to temp files.
const maxUploadMemory = 32 << 20

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// uploadForm models the multipart form fields for input validation.
type uploadForm struct {
	Title string `validate:"required,min=1,max=128"`
	Mode  string `validate:"required,oneof=pptx images"`
}

// Handler is the interface for the upload boundary: staging submitted
// documents or images and triggering the ingestion pipeline.
type Handler interface {

	// HandleUpload handles the multipart document/image upload request. The
	// response never waits on conversion; processing is triggered
	// asynchronously.
	HandleUpload(w http.ResponseWriter, r *http.Request)
}

// NewHandler creates a new upload handler instance, returning a pointer to
// the concrete implementation.
func NewHandler(dataRoot string, reg song.Registry, p pipeline.Pipeline, v auth.Verifier) Handler {
	return &handler{
		stagingDir: filepath.Join(dataRoot, util.DirStaging),
		songsDir:   filepath.Join(dataRoot, util.DirSongs),
		registry:   reg,
		pipeline:   p,
		verifier:   v,
		validate:   validator.New(),

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageUpload)).
			With(slog.String(util.ComponentKey, util.ComponentUploadHandler)),
	}
}

var _ Handler = (*handler)(nil)

// handler is the concrete implementation of the Handler interface.
type handler struct {
	stagingDir string
	songsDir   string
	registry   song.Registry
	pipeline   pipeline.Pipeline
	verifier   auth.Verifier
	validate   *validator.Validate

	logger *slog.Logger
}

// HandleUpload is the concrete implementation of the interface method which
// handles the multipart upload request.
func (h *handler) HandleUpload(w http.ResponseWriter, r *http.Request) {

	if err := h.verifier.Verify(r); err != nil {
		h.logger.Error(fmt.Sprintf("/songs/upload handler failed to authorize request: %v", err))
		e := api.ErrHttp{
			StatusCode: http.StatusUnauthorized,
			Message:    "invalid credentials",
		}
		e.SendJsonErr(w)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "invalid multipart form",
		}
		e.SendJsonErr(w)
		return
	}

	form := uploadForm{
		Title: strings.TrimSpace(r.FormValue("title")),
		Mode:  r.FormValue("mode"),
	}

	if err := h.validate.Struct(form); err != nil {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "title is required and mode must be 'pptx' or 'images'",
		}
		e.SendJsonErr(w)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "no files provided",
		}
		e.SendJsonErr(w)
		return
	}

	for _, file := range files {
		if !validFileType(file, form.Mode) {
			expected := "PowerPoint (.pptx)"
			if form.Mode == api.ModeImages {
				expected = "images (.png, .jpg, .jpeg)"
			}
			e := api.ErrHttp{
				StatusCode: http.StatusBadRequest,
				Message:    fmt.Sprintf("invalid file type, expected: %s", expected),
			}
			e.SendJsonErr(w)
			return
		}
	}

	if form.Mode == api.ModePptx && len(files) > 1 {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    "only one pptx file is allowed",
		}
		e.SendJsonErr(w)
		return
	}

	// the sanitized title is the file base name downstream, so it must
	// satisfy the song name grammar here at the boundary
	sanitized := song.SanitizeTitle(form.Title)
	names, err := song.ParseName(sanitized)
	if err != nil {
		e := api.ErrHttp{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("invalid title: %q resolves to no valid song name", form.Title),
		}
		e.SendJsonErr(w)
		return
	}

	switch form.Mode {
	case api.ModePptx:
		if ok := h.stagePptx(w, r, sanitized, names, files[0]); !ok {
			return
		}
	case api.ModeImages:
		if ok := h.stageImages(w, sanitized, files); !ok {
			return
		}
	}

	// fire and forget on a background context; the run outlives this request
	if started := h.pipeline.Trigger(context.Background()); started {
		h.logger.Info("upload accepted, pipeline run started")
	} else {
		h.logger.Info("upload accepted, pipeline run already in progress")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(api.UploadAccepted{
		Message:    "files uploaded successfully and processing started",
		Title:      sanitized,
		Mode:       form.Mode,
		FilesCount: len(files),
	}); err != nil {
		h.logger.Error(fmt.Sprintf("/songs/upload handler failed to encode response: %v", err))
	}
}

// stagePptx writes the uploaded document into the staging directory and
// records it in the registry. Returns false after sending an error
// response.
func (h *handler) stagePptx(w http.ResponseWriter, r *http.Request, sanitized string, names []string, file *multipart.FileHeader) bool {

	if err := os.MkdirAll(h.stagingDir, 0755); err != nil {
		h.logger.Error(fmt.Sprintf("failed to create staging dir: %v", err))
		h.sendServerErr(w)
		return false
	}

	staged := filepath.Join(h.stagingDir, sanitized+".pptx")

	if _, err := os.Stat(staged); err == nil {
		e := api.ErrHttp{
			StatusCode: http.StatusConflict,
			Message:    "a file with this title already exists",
		}
		e.SendJsonErr(w)
		return false
	}

	if err := saveFile(file, staged); err != nil {
		h.logger.Error(fmt.Sprintf("failed to stage uploaded document: %v", err))
		h.sendServerErr(w)
		return false
	}

	if _, err := h.registry.Add(r.Context(), sanitized, names, staged); err != nil {
		h.logger.Error(fmt.Sprintf("failed to record upload: %v", err))
		// the staged file would be adopted on the next run, but the caller
		// deserves a consistent answer: clean up and fail
		if err := os.Remove(staged); err != nil {
			h.logger.Error(fmt.Sprintf("failed to remove staged file after registry error: %v", err))
		}
		h.sendServerErr(w)
		return false
	}

	h.logger.Info(fmt.Sprintf("staged document %s.pptx", sanitized))

	return true
}

// stageImages writes uploaded images directly into a new song directory,
// already in slide naming order. Returns false after sending an error
// response.
func (h *handler) stageImages(w http.ResponseWriter, sanitized string, files []*multipart.FileHeader) bool {

	songDir := filepath.Join(h.songsDir, sanitized)

	if _, err := os.Stat(songDir); err == nil {
		e := api.ErrHttp{
			StatusCode: http.StatusConflict,
			Message:    "a song with this title already exists",
		}
		e.SendJsonErr(w)
		return false
	}

	if err := os.MkdirAll(songDir, 0755); err != nil {
		h.logger.Error(fmt.Sprintf("failed to create song dir %s: %v", songDir, err))
		h.sendServerErr(w)
		return false
	}

	for i, file := range files {

		ext := strings.ToLower(filepath.Ext(file.Filename))
		dest := filepath.Join(songDir, fmt.Sprintf("%s%d%s", util.SlidePrefix, i, ext))

		if err := saveFile(file, dest); err != nil {
			h.logger.Error(fmt.Sprintf("failed to save uploaded image %s: %v", file.Filename, err))
			h.sendServerErr(w)
			return false
		}

		h.logger.Info(fmt.Sprintf("image saved: %s/%s%d%s", sanitized, util.SlidePrefix, i, ext))
	}

	return true
}

// sendServerErr sends the uniform 500 response.
func (h *handler) sendServerErr(w http.ResponseWriter) {
	e := api.ErrHttp{
		StatusCode: http.StatusInternalServerError,
		Message:    "internal server error",
	}
	e.SendJsonErr(w)
}

// validFileType checks an uploaded file's declared content type against the
// mode, falling back to the extension when the client sent none.
func validFileType(file *multipart.FileHeader, mode string) bool {

	contentType := file.Header.Get("Content-Type")

	if mode == api.ModePptx {
		if contentType == pptxContentType {
			return true
		}
		return contentType == "" && strings.EqualFold(filepath.Ext(file.Filename), ".pptx")
	}

	switch contentType {
	case "image/png", "image/jpeg", "image/jpg":
		return true
	}
	return false
}

// saveFile copies one multipart file to dest.
func saveFile(file *multipart.FileHeader, dest string) error {

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %v", err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", dest, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %v", dest, err)
	}

	return out.Close()
}

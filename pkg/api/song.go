package api

import (
	"fmt"
	"strings"
)

const (
	TitleMinLength = 1   // Minimum length for a song title
	TitleMaxLength = 128 // Maximum length for a song title

	// upload modes
	ModePptx   = "pptx"
	ModeImages = "images"
)

// UploadAccepted is the response model for a successful upload submission.
// Processing happens asynchronously, so acceptance says nothing about
// conversion success.
type UploadAccepted struct {
	Message    string `json:"message"`
	Title      string `json:"title"`
	Mode       string `json:"mode"`
	FilesCount int    `json:"files_count"`
}

// ProcessStatus is the response model for the pipeline trigger endpoint.
type ProcessStatus struct {
	Message string `json:"message"`
}

// CurateCmd is a command submitting an admin's curated slide selection for
// one review-pending song: the subset of staged filenames to keep, in
// performance order.
type CurateCmd struct {
	Slides []string `json:"slides"`
}

// Validate validates the CurateCmd -> input validation.
func (c *CurateCmd) Validate() error {

	if len(c.Slides) == 0 {
		return fmt.Errorf("at least one slide is required")
	}

	for _, s := range c.Slides {
		if s == "" {
			return fmt.Errorf("slide filename must not be empty")
		}

		// filenames only; no path segments
		if strings.ContainsAny(s, "/\\") || strings.Contains(s, "..") {
			return fmt.Errorf("invalid slide filename: %s", s)
		}
	}

	return nil
}

// PublishResult is the response model for a completed curation + publication.
type PublishResult struct {
	SongName string   `json:"song_name"` // final catalog key, may carry a -2, -3, ... suffix
	Slides   []string `json:"slides"`    // final slide filenames in performance order
	Links    []string `json:"links"`     // public urls in performance order
}

// DeleteResult is the response model for a deleted review-pending song.
type DeleteResult struct {
	SongName    string `json:"song_name"`
	DeletedPath string `json:"deleted_path"`
}

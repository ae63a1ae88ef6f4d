package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tdeslauriers/cantor/internal/catalog"
	"github.com/tdeslauriers/cantor/internal/review"
	"github.com/tdeslauriers/cantor/internal/storage"
	"github.com/tdeslauriers/cantor/internal/util"
	"github.com/tdeslauriers/cantor/pkg/api"
)

// Publisher is the interface for finalizing a reviewed song: curating its
// working directory, uploading the finalized slides to object storage, and
// merging the result into the catalog.
type Publisher interface {

	// Publish curates the pending song to the admin's ordered selection and
	// publishes it under a collision-free catalog key. Every slide is
	// uploaded before the catalog is written; an upload failure aborts the
	// publish with no catalog change (a crash mid-upload can orphan remote
	// objects, which is accepted and not reconciled). Failure here is
	// surfaced to the caller: the admin is waiting on this one
	// synchronously.
	Publish(ctx context.Context, songName string, selection []string) (*api.PublishResult, error)
}

// NewPublisher creates a new publisher instance, returning a pointer to the
// concrete implementation.
func NewPublisher(c catalog.Store, r review.Service, o storage.ObjectStorage) Publisher {
	return &publisher{
		catalog: c,
		review:  r,
		store:   o,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackagePublish)).
			With(slog.String(util.ComponentKey, util.ComponentPublisher)),
	}
}

var _ Publisher = (*publisher)(nil)

// publisher is the concrete implementation of the Publisher interface.
type publisher struct {
	catalog catalog.Store
	review  review.Service
	store   storage.ObjectStorage

	logger *slog.Logger
}

// Publish is the concrete implementation of the interface method which
// finalizes a reviewed song.
func (p *publisher) Publish(ctx context.Context, songName string, selection []string) (*api.PublishResult, error) {

	var (
		slides []string
		links  []string
	)

	// the curation and uploads run inside the catalog's critical section so
	// the resolved key cannot be taken by a concurrent publish between
	// probing and the merge
	finalKey, err := p.catalog.Merge(songName, func(finalKey string) (*catalog.Entry, error) {

		final, err := p.review.Curate(songName, selection, finalKey)
		if err != nil {
			return nil, fmt.Errorf("failed to curate song '%s': %v", songName, err)
		}

		dir := p.review.Dir(songName)

		urls := make([]string, 0, len(final))
		for _, name := range final {
			url, err := p.store.PutFile(ctx, name, filepath.Join(dir, name), "image/png")
			if err != nil {
				// all-or-nothing before the catalog write: a partial entry
				// must never be published silently
				return nil, fmt.Errorf("failed to upload slide %s for song '%s': %v", name, songName, err)
			}
			urls = append(urls, url)
		}

		slides = final
		links = urls

		return &catalog.Entry{Links: urls}, nil
	})
	if err != nil {
		return nil, err
	}

	// the working directory's contents now live in object storage
	if err := os.RemoveAll(p.review.Dir(songName)); err != nil {
		p.logger.Error(fmt.Sprintf("failed to remove published song directory for '%s': %v", songName, err))
	}

	p.logger.Info(fmt.Sprintf("published song '%s' as catalog key '%s' with %d slides", songName, finalKey, len(slides)))

	return &api.PublishResult{
		SongName: finalKey,
		Slides:   slides,
		Links:    links,
	}, nil
}

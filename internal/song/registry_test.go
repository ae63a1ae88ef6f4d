package song

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRegistryLifecycle(t *testing.T) {

	reg, err := NewRegistry(filepath.Join(t.TempDir(), "uploads.db"))
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	defer reg.Close()

	ctx := context.Background()

	u, err := reg.Add(ctx, "verse_chorus", []string{"verse", "chorus"}, "/data/pptxs/verse_chorus.pptx")
	if err != nil {
		t.Fatalf("failed to add upload: %v", err)
	}

	if u.Status != StatusPending {
		t.Errorf("expected new upload status %q, got %q", StatusPending, u.Status)
	}

	pending, err := reg.Pending(ctx)
	if err != nil {
		t.Fatalf("failed to read pending uploads: %v", err)
	}

	if len(pending) != 1 {
		t.Fatalf("expected 1 pending upload, got %d", len(pending))
	}

	got := pending[0]
	if got.Id != u.Id {
		t.Errorf("expected pending upload id %q, got %q", u.Id, got.Id)
	}

	if len(got.Names) != 2 || got.Names[0] != "verse" || got.Names[1] != "chorus" {
		t.Errorf("expected names [verse chorus], got %v", got.Names)
	}

	if got.StagingPath != "/data/pptxs/verse_chorus.pptx" {
		t.Errorf("unexpected staging path: %s", got.StagingPath)
	}

	// status transition removes it from pending
	if err := reg.SetStatus(ctx, u.Id, StatusComplete, ""); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	pending, err = reg.Pending(ctx)
	if err != nil {
		t.Fatalf("failed to re-read pending uploads: %v", err)
	}

	if len(pending) != 0 {
		t.Errorf("expected 0 pending uploads after completion, got %d", len(pending))
	}

	// staging path is still known regardless of status
	known, err := reg.HasStagingPath(ctx, "/data/pptxs/verse_chorus.pptx")
	if err != nil {
		t.Fatalf("failed to check staging path: %v", err)
	}
	if !known {
		t.Error("expected staging path to be known after completion")
	}

	known, err = reg.HasStagingPath(ctx, "/data/pptxs/unknown.pptx")
	if err != nil {
		t.Fatalf("failed to check unknown staging path: %v", err)
	}
	if known {
		t.Error("expected unknown staging path to be unknown")
	}
}

func TestRegistrySetStatusUnknownId(t *testing.T) {

	reg, err := NewRegistry(filepath.Join(t.TempDir(), "uploads.db"))
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	defer reg.Close()

	if err := reg.SetStatus(context.Background(), "no-such-id", StatusFailed, "whatever"); err == nil {
		t.Error("expected error setting status on unknown upload id")
	}
}

package ledger

import (
	"errors"
	"testing"
)

func testScene(id int) Scene {
	return Scene{
		ID:       id,
		SrtStart: "00:00:00,000",
		SrtEnd:   "00:00:20,000",
		Text:     "scene text",
	}
}

func newTestLedger(t *testing.T, ids ...int) (*Ledger, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	l, err := Load(store, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, id := range ids {
		if err := l.AddScene(testScene(id)); err != nil {
			t.Fatalf("AddScene(%d): %v", id, err)
		}
	}
	return l, store
}

func TestAddScene(t *testing.T) {
	l, store := newTestLedger(t, 1)

	s, err := l.Scene(1)
	if err != nil {
		t.Fatalf("Scene: %v", err)
	}
	if s.Image.Status != StatusPending || s.Video.Status != StatusPending {
		t.Errorf("new scene should start pending/pending, got %s/%s", s.Image.Status, s.Video.Status)
	}

	if err := l.AddScene(testScene(1)); err == nil {
		t.Error("duplicate scene id should fail")
	}

	if stored, ok := store.GetScene(1); !ok || stored.ID != 1 {
		t.Error("scene not persisted to store")
	}
}

func TestPendingForStage_OrderAndFilter(t *testing.T) {
	l, _ := newTestLedger(t, 3, 1, 2)

	if err := l.BeginAttempt(2, StageImage); err != nil {
		t.Fatalf("BeginAttempt: %v", err)
	}
	if err := l.Complete(2, StageImage, "img/scene_002.png"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	pending := l.PendingForStage(StageImage)
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ID != 1 || pending[1].ID != 3 {
		t.Errorf("pending order = %d,%d, want 1,3", pending[0].ID, pending[1].ID)
	}

	// Video stage is untouched, all three still pending, ascending order.
	video := l.PendingForStage(StageVideo)
	if len(video) != 3 || video[0].ID != 1 || video[2].ID != 3 {
		t.Errorf("unexpected video pending set: %+v", video)
	}
}

func TestBeginAttempt(t *testing.T) {
	t.Run("increments attempts and sets generating", func(t *testing.T) {
		l, store := newTestLedger(t, 1)

		if err := l.BeginAttempt(1, StageImage); err != nil {
			t.Fatalf("BeginAttempt: %v", err)
		}
		s, _ := l.Scene(1)
		if s.Image.Status != StatusGenerating || s.Image.Attempts != 1 {
			t.Errorf("got %s/%d, want generating/1", s.Image.Status, s.Image.Attempts)
		}

		stored, _ := store.GetScene(1)
		if stored.Image.Status != StatusGenerating {
			t.Error("status change not persisted")
		}
	})

	t.Run("video before image done is invalid", func(t *testing.T) {
		l, _ := newTestLedger(t, 1)

		err := l.BeginAttempt(1, StageVideo)
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if invalid.SceneID != 1 || invalid.Stage != StageVideo {
			t.Errorf("error misattributed: %+v", invalid)
		}
	})

	t.Run("video eligible in same pass once image completes", func(t *testing.T) {
		l, _ := newTestLedger(t, 7)

		if err := l.BeginAttempt(7, StageImage); err != nil {
			t.Fatalf("BeginAttempt image: %v", err)
		}
		if err := l.Complete(7, StageImage, "img/scene_007.png"); err != nil {
			t.Fatalf("Complete image: %v", err)
		}

		// No reload needed: the very next call sees the image done.
		pending := l.PendingForStage(StageVideo)
		if len(pending) != 1 || pending[0].ID != 7 {
			t.Fatalf("scene 7 should be pending for video: %+v", pending)
		}
		if err := l.BeginAttempt(7, StageVideo); err != nil {
			t.Fatalf("BeginAttempt video: %v", err)
		}
	})

	t.Run("done stage cannot restart", func(t *testing.T) {
		l, _ := newTestLedger(t, 1)

		if err := l.BeginAttempt(1, StageImage); err != nil {
			t.Fatal(err)
		}
		if err := l.Complete(1, StageImage, "img/a.png"); err != nil {
			t.Fatal(err)
		}

		var invalid *InvalidTransitionError
		if err := l.BeginAttempt(1, StageImage); !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
	})

	t.Run("unknown scene", func(t *testing.T) {
		l, _ := newTestLedger(t)
		var notFound *NotFoundError
		if err := l.BeginAttempt(99, StageImage); !errors.As(err, &notFound) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}

func TestComplete_Idempotent(t *testing.T) {
	l, _ := newTestLedger(t, 1)

	if err := l.BeginAttempt(1, StageImage); err != nil {
		t.Fatal(err)
	}
	if err := l.Complete(1, StageImage, "img/scene_001.png"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Same artifact again: no-op, no error.
	if err := l.Complete(1, StageImage, "img/scene_001.png"); err != nil {
		t.Errorf("repeated Complete with same artifact should be a no-op, got %v", err)
	}

	// Different artifact: refused.
	var invalid *InvalidTransitionError
	if err := l.Complete(1, StageImage, "img/other.png"); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	s, _ := l.Scene(1)
	if s.Image.Artifact != "img/scene_001.png" {
		t.Errorf("artifact overwritten: %q", s.Image.Artifact)
	}
}

func TestFail_ReEnterable(t *testing.T) {
	l, _ := newTestLedger(t, 1)

	if err := l.BeginAttempt(1, StageImage); err != nil {
		t.Fatal(err)
	}
	if err := l.Fail(1, StageImage); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	s, _ := l.Scene(1)
	if s.Image.Status != StatusError {
		t.Errorf("status = %s, want error", s.Image.Status)
	}

	// Errored jobs come back on the next pass.
	pending := l.PendingForStage(StageImage)
	if len(pending) != 1 || pending[0].ID != 1 {
		t.Fatalf("errored scene should be pending again: %+v", pending)
	}
	if err := l.BeginAttempt(1, StageImage); err != nil {
		t.Fatalf("retry after error: %v", err)
	}
	if s, _ := l.Scene(1); s.Image.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", s.Image.Attempts)
	}
}

func TestPersistAfterEveryMutation(t *testing.T) {
	l, store := newTestLedger(t, 1)
	base := store.SaveCount()

	ops := []func() error{
		func() error { return l.BeginAttempt(1, StageImage) },
		func() error { return l.Complete(1, StageImage, "img/a.png") },
		func() error { return l.BeginAttempt(1, StageVideo) },
		func() error { return l.Fail(1, StageVideo) },
		func() error { return l.SetPrompts(1, "an image", "a video") },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		if got := store.SaveCount(); got != base+i+1 {
			t.Fatalf("after op %d SaveCount = %d, want %d", i, got, base+i+1)
		}
	}
}

func TestMutation_StoreFailureSurfaces(t *testing.T) {
	l, store := newTestLedger(t, 1)

	store.SaveErr = errors.New("disk full")
	if err := l.BeginAttempt(1, StageImage); err == nil {
		t.Fatal("store failure must surface to the caller")
	}
}

func TestLoad_ResetsInterruptedGeneration(t *testing.T) {
	store := NewMemoryStore()
	s := testScene(5)
	s.Image.Status = StatusGenerating
	s.Image.Attempts = 2
	s.Video.Status = "bogus"
	if err := store.UpsertScene(s); err != nil {
		t.Fatal(err)
	}

	l, err := Load(store, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, _ := l.Scene(5)
	if got.Image.Status != StatusPending {
		t.Errorf("interrupted image stage = %s, want pending", got.Image.Status)
	}
	if got.Video.Status != StatusPending {
		t.Errorf("unknown video status = %s, want pending", got.Video.Status)
	}
	if got.Image.Attempts != 2 {
		t.Errorf("attempt history lost: %d", got.Image.Attempts)
	}
}

func TestUpsertCharacter(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.UpsertCharacter(Character{ID: "nvc", Role: "main", Name: "Lan"}); err != nil {
		t.Fatalf("UpsertCharacter: %v", err)
	}
	if err := l.UpsertCharacter(Character{}); err == nil {
		t.Error("character without id should fail")
	}

	chars := l.Characters()
	if len(chars) != 1 || chars[0].Status != StatusPending {
		t.Errorf("unexpected characters: %+v", chars)
	}
}

func TestStats(t *testing.T) {
	l, _ := newTestLedger(t, 1, 2, 3)

	if err := l.SetPrompts(1, "img prompt", "vid prompt"); err != nil {
		t.Fatal(err)
	}
	if err := l.BeginAttempt(1, StageImage); err != nil {
		t.Fatal(err)
	}
	if err := l.Complete(1, StageImage, "img/a.png"); err != nil {
		t.Fatal(err)
	}
	if err := l.BeginAttempt(2, StageImage); err != nil {
		t.Fatal(err)
	}
	if err := l.Fail(2, StageImage); err != nil {
		t.Fatal(err)
	}

	st := l.Stats()
	if st.Scenes != 3 || st.ScenesWithPrompts != 1 {
		t.Errorf("Scenes=%d ScenesWithPrompts=%d", st.Scenes, st.ScenesWithPrompts)
	}
	if st.ImagesDone != 1 || st.ImagesError != 1 || st.ImagesPending != 1 {
		t.Errorf("image counts done=%d error=%d pending=%d", st.ImagesDone, st.ImagesError, st.ImagesPending)
	}
	if st.VideosPending != 3 {
		t.Errorf("VideosPending = %d, want 3", st.VideosPending)
	}
}

package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestXLSXStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts", "test_prompts.xlsx")

	store, err := OpenXLSX(path)
	if err != nil {
		t.Fatalf("OpenXLSX: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("new workbook not written: %v", err)
	}

	scene := Scene{
		ID:          1,
		SrtStart:    "00:00:00,000",
		SrtEnd:      "00:00:18,500",
		Text:        "The harbor was quiet.",
		ImagePrompt: "a quiet harbor at dawn",
		VideoPrompt: "slow pan across a quiet harbor",
		Image:       StageState{Status: StatusDone, Attempts: 2, Artifact: "img/scene_001.png"},
		Video:       StageState{Status: StatusError, Attempts: 1},
	}
	if err := store.UpsertScene(scene); err != nil {
		t.Fatal(err)
	}
	char := Character{
		ID: "nvc", Role: "main", Name: "Lan",
		Prompt: "a young woman in a straw hat", ImageFile: "nvc.png",
		Status: StatusDone,
	}
	if err := store.UpsertCharacter(char); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := OpenXLSX(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	scenes, err := reopened.LoadScenes()
	if err != nil {
		t.Fatalf("LoadScenes: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes, want 1", len(scenes))
	}
	got := scenes[0]
	if got.ID != 1 || got.Text != scene.Text || got.ImagePrompt != scene.ImagePrompt {
		t.Errorf("scene fields lost: %+v", got)
	}
	if got.Image.Status != StatusDone || got.Image.Attempts != 2 || got.Image.Artifact != "img/scene_001.png" {
		t.Errorf("image stage lost: %+v", got.Image)
	}
	if got.Video.Status != StatusError || got.Video.Attempts != 1 {
		t.Errorf("video stage lost: %+v", got.Video)
	}

	chars, err := reopened.LoadCharacters()
	if err != nil {
		t.Fatalf("LoadCharacters: %v", err)
	}
	if len(chars) != 1 || chars[0].ID != "nvc" || chars[0].Prompt != char.Prompt {
		t.Errorf("character lost: %+v", chars)
	}
}

func TestXLSXStore_UpsertReplacesByKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.xlsx")
	store, err := OpenXLSX(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, status := range []Status{StatusPending, StatusGenerating, StatusDone} {
		if err := store.UpsertScene(Scene{ID: 3, Image: StageState{Status: status}}); err != nil {
			t.Fatal(err)
		}
	}
	scenes, _ := store.LoadScenes()
	if len(scenes) != 1 {
		t.Fatalf("upsert duplicated rows: %d", len(scenes))
	}
	if scenes[0].Image.Status != StatusDone {
		t.Errorf("last write should win, got %s", scenes[0].Image.Status)
	}
}

func TestXLSXStore_ClearRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.xlsx")
	store, err := OpenXLSX(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.UpsertScene(Scene{ID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertCharacter(Character{ID: "nvc"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(); err != nil {
		t.Fatal(err)
	}

	if err := store.ClearScenes(); err != nil {
		t.Fatal(err)
	}
	if err := store.ClearCharacters(); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if scenes, _ := reopened.LoadScenes(); len(scenes) != 0 {
		t.Errorf("scenes survived clear: %+v", scenes)
	}
	if chars, _ := reopened.LoadCharacters(); len(chars) != 0 {
		t.Errorf("characters survived clear: %+v", chars)
	}
}

func TestXLSXStore_LoadWithLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.xlsx")
	store, err := OpenXLSX(path)
	if err != nil {
		t.Fatal(err)
	}

	l, err := Load(store, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := l.AddScene(testScene(1)); err != nil {
		t.Fatal(err)
	}
	if err := l.BeginAttempt(1, StageImage); err != nil {
		t.Fatal(err)
	}
	if err := l.Complete(1, StageImage, "img/scene_001.png"); err != nil {
		t.Fatal(err)
	}

	// A fresh process sees the completed image stage.
	store2, err := OpenXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := Load(store2, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := l2.Scene(1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Image.Status != StatusDone || s.Image.Artifact != "img/scene_001.png" {
		t.Errorf("state not durable across reopen: %+v", s.Image)
	}
}

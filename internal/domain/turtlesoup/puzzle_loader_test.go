package turtlesoup

import (
	"testing"
	"testing/fstest"
)

func TestPuzzleLoaderEmbedded(t *testing.T) {
	loader, err := NewPuzzleLoader()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := loader.Count()
	if count == 0 {
		t.Fatalf("expected puzzles to be loaded")
	}

	first := loader.GetByIndex(0)
	if first == nil || first.ID != "fifth-walker" {
		t.Fatalf("expected seed puzzle first, got %+v", first)
	}
	if !IsSeedPuzzle(first) {
		t.Fatalf("first puzzle should be the seed puzzle")
	}

	for _, puzzle := range loader.All() {
		if puzzle.Difficulty < MinDifficulty || puzzle.Difficulty > MaxDifficulty {
			t.Fatalf("difficulty out of range: %+v", puzzle)
		}
		if puzzle.Answer == "" || puzzle.Opening == "" {
			t.Fatalf("incomplete puzzle: %s", puzzle.ID)
		}
	}

	puzzle, index, err := loader.RandomByDifficulty(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if puzzle.Difficulty != 2 || loader.GetByIndex(index).ID != puzzle.ID {
		t.Fatalf("unexpected random puzzle: %+v at %d", puzzle, index)
	}
	if _, _, err := loader.RandomByDifficulty(0); err != nil {
		t.Fatalf("unexpected error for any difficulty: %v", err)
	}
}

func TestPuzzleLoaderClampsIndex(t *testing.T) {
	loader, err := NewPuzzleLoader()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := loader.All()

	if got := loader.GetByIndex(-10); got.ID != all[0].ID {
		t.Fatalf("negative index should clamp to first, got %s", got.ID)
	}
	if got := loader.GetByIndex(len(all) + 10); got.ID != all[len(all)-1].ID {
		t.Fatalf("large index should clamp to last, got %s", got.ID)
	}
}

func TestPuzzleLoaderGetByIDReturnsCopy(t *testing.T) {
	loader, err := NewPuzzleLoader()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	puzzle, index, ok := loader.GetByID(" glass-of-water ")
	if !ok {
		t.Fatalf("expected puzzle by id")
	}
	puzzle.Opening = "mutated"
	if loader.GetByIndex(index).Opening == "mutated" {
		t.Fatalf("loader must not expose internal puzzles")
	}
	if _, _, ok := loader.GetByID("missing"); ok {
		t.Fatalf("unexpected puzzle for missing id")
	}
}

func TestPuzzleLoaderEmptyCollection(t *testing.T) {
	loader, err := NewPuzzleLoaderFS(fstest.MapFS{}, "puzzles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loader.Count() != 0 {
		t.Fatalf("expected empty collection")
	}
	if loader.GetByIndex(0) != nil {
		t.Fatalf("expected nil puzzle from empty collection")
	}
	if _, _, err := loader.RandomByDifficulty(0); err == nil {
		t.Fatalf("expected error from empty collection")
	}
}

func TestPuzzleLoaderValidation(t *testing.T) {
	dup := fstest.MapFS{
		"p/a.json": {Data: []byte(`[{"id":"x","opening":"o"}]`)},
		"p/b.json": {Data: []byte(`[{"id":"x","opening":"o2"}]`)},
	}
	if _, err := NewPuzzleLoaderFS(dup, "p"); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	missingID := fstest.MapFS{"p/a.json": {Data: []byte(`[{"opening":"o"}]`)}}
	if _, err := NewPuzzleLoaderFS(missingID, "p"); err == nil {
		t.Fatalf("expected missing id error")
	}

	clamp := fstest.MapFS{"p/a.json": {Data: []byte(`[{"id":"a"},{"id":"b","difficulty":9}]`)}}
	loader, err := NewPuzzleLoaderFS(clamp, "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loader.GetByIndex(0).Difficulty != DefaultDifficulty || loader.GetByIndex(1).Difficulty != MaxDifficulty {
		t.Fatalf("unexpected difficulty clamping: %+v", loader.All())
	}
}

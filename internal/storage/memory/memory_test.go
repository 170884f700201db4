package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/storage/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, New())
}

func TestNewFromFilesSeedsGlobalCategories(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background(), 1)
	if len(cats) == 0 {
		t.Fatalf("expected defaults when file missing")
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# header\nRent\nFood\nRent\n\n"), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background(), 1)
	if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "Rent" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
	for _, c := range cats {
		if c.UserID != 0 {
			t.Fatalf("seeded category %q should be global", c.Name)
		}
	}
}

package store

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, G: 64, B: 32, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"),
		filepath.Join(dir, "uploads"), filepath.Join(dir, "out"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterAndGet(t *testing.T) {
	s := testStore(t)
	path := writePNG(t, t.TempDir(), "photo.png", 10, 7)

	rec, err := s.Register(path, "photo.png")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if rec.ID == "" || rec.Width != 10 || rec.Height != 7 || rec.Format != "png" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := s.Get(rec.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Path != path || got.OriginalName != "photo.png" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestRegisterRejectsNonImage(t *testing.T) {
	s := testStore(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := s.Register(path, "notes.txt"); err == nil {
		t.Fatal("expected probe failure for non-image")
	}
}

func TestListAndRemove(t *testing.T) {
	s := testStore(t)
	dir := t.TempDir()
	a, _ := s.Register(writePNG(t, dir, "a.png", 4, 4), "a.png")
	b, _ := s.Register(writePNG(t, dir, "b.png", 4, 4), "b.png")

	recs, err := s.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	if err := s.Remove(a.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := s.Get(a.ID); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if _, err := s.Get(b.ID); err != nil {
		t.Fatalf("remove must not touch other records: %v", err)
	}
	if err := s.Remove("missing"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestLoadByIDAndByPath(t *testing.T) {
	s := testStore(t)
	path := writePNG(t, t.TempDir(), "scan.png", 6, 5)
	rec, err := s.Register(path, "scan.png")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx := context.Background()

	img, name, err := s.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("load by id failed: %v", err)
	}
	if name != "scan.png" || img.Bounds().Dx() != 6 {
		t.Fatalf("load by id wrong: name=%q bounds=%v", name, img.Bounds())
	}

	img, name, err = s.Load(ctx, path)
	if err != nil {
		t.Fatalf("load by path failed: %v", err)
	}
	if name != "scan.png" || img.Bounds().Dy() != 5 {
		t.Fatalf("load by path wrong: name=%q bounds=%v", name, img.Bounds())
	}

	if _, _, err := s.Load(ctx, "/no/such/file.png"); err == nil {
		t.Fatal("expected error for unknown ref")
	}
}

func TestSaveWritesProcessedPNG(t *testing.T) {
	s := testStore(t)
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))

	out, err := s.Save(context.Background(), img, "result.jpg")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasSuffix(out, "processed_result.png") {
		t.Fatalf("unexpected output path: %s", out)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("saved file not a png: %v", err)
	}
	if cfg.Width != 3 || cfg.Height != 3 {
		t.Fatalf("saved dimensions %dx%d", cfg.Width, cfg.Height)
	}
}

func TestLoadHonorsContextCancellation(t *testing.T) {
	s := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.Load(ctx, "anything"); err == nil {
		t.Fatal("expected context error")
	}
	if _, err := s.Save(ctx, image.NewRGBA(image.Rect(0, 0, 1, 1)), "x"); err == nil {
		t.Fatal("expected context error")
	}
}

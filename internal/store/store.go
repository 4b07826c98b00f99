// Package store is the image-library collaborator around the batch
// core: a SQLite-indexed collection of registered images on disk, plus
// the input-resolution and output-persistence interfaces the
// orchestrator consumes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrImageNotFound is returned when an image id is not in the index.
var ErrImageNotFound = errors.New("image not found")

// Store wraps the SQLite-backed image index and the upload/output
// directories.
type Store struct {
	DB        *sql.DB
	uploadDir string
	outputDir string
	log       *slog.Logger
}

// ImageRecord captures one registered image.
type ImageRecord struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	OriginalName string    `json:"original_name"`
	Format       string    `json:"format"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Open opens (or creates) the database at path, ensures the schema and
// the working directories.
func Open(path, uploadDir, outputDir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db, uploadDir: uploadDir, outputDir: outputDir, log: log}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	for _, dir := range []string{uploadDir, outputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS images (
            id TEXT PRIMARY KEY,
            path TEXT NOT NULL,
            original_name TEXT,
            format TEXT,
            width INTEGER,
            height INTEGER,
            registered_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_images_path ON images(path);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// UploadDir returns the directory uploads are written into.
func (s *Store) UploadDir() string { return s.uploadDir }

// Register indexes an existing image file, probing its dimensions and
// format, and returns the new record.
func (s *Store) Register(path, originalName string) (ImageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageRecord{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageRecord{}, fmt.Errorf("probe %s: %w", path, err)
	}

	rec := ImageRecord{
		ID:           uuid.NewString(),
		Path:         path,
		OriginalName: originalName,
		Format:       format,
		Width:        cfg.Width,
		Height:       cfg.Height,
		RegisteredAt: time.Now(),
	}
	_, err = s.DB.Exec(`INSERT INTO images (id, path, original_name, format, width, height, registered_at) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		rec.ID, rec.Path, rec.OriginalName, rec.Format, rec.Width, rec.Height, rec.RegisteredAt)
	if err != nil {
		return ImageRecord{}, err
	}
	s.log.Debug("image registered", "id", rec.ID, "path", rec.Path)
	return rec, nil
}

// Get fetches one record by id.
func (s *Store) Get(id string) (ImageRecord, error) {
	row := s.DB.QueryRow(`SELECT id, path, original_name, format, width, height, registered_at FROM images WHERE id=?;`, id)
	return scanRecord(row)
}

// List returns all registered images, oldest first.
func (s *Store) List() ([]ImageRecord, error) {
	rows, err := s.DB.Query(`SELECT id, path, original_name, format, width, height, registered_at FROM images ORDER BY registered_at, id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ImageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Remove drops an image from the index. The file on disk is left
// alone.
func (s *Store) Remove(id string) error {
	res, err := s.DB.Exec(`DELETE FROM images WHERE id=?;`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrImageNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ImageRecord, error) {
	var rec ImageRecord
	var name, format sql.NullString
	err := row.Scan(&rec.ID, &rec.Path, &name, &format, &rec.Width, &rec.Height, &rec.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ImageRecord{}, ErrImageNotFound
	}
	if err != nil {
		return ImageRecord{}, err
	}
	rec.OriginalName = name.String
	rec.Format = format.String
	return rec, nil
}

// Load resolves an input reference for the orchestrator: a registered
// image id, or failing that a filesystem path. The returned name is
// the original upload name or the file's base name.
func (s *Store) Load(ctx context.Context, ref string) (image.Image, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	path := ref
	name := filepath.Base(ref)
	if rec, err := s.Get(ref); err == nil {
		path = rec.Path
		if rec.OriginalName != "" {
			name = rec.OriginalName
		} else {
			name = filepath.Base(rec.Path)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, name, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, name, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, name, nil
}

// Save persists a processed image as PNG under the output directory.
// PNG keeps whatever bit depth the pipeline produced; the encoder, not
// the batch core, owns on-disk normalization.
func (s *Store) Save(ctx context.Context, img image.Image, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := name
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	outPath := filepath.Join(s.outputDir, "processed_"+base+".png")

	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode %s: %w", outPath, err)
	}
	return outPath, nil
}

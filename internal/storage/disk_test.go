package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/bookworm/internal/models"
)

func writeSized(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, n), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiskUsageBytes_SumsDataStores(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "books.db")
	catalog := filepath.Join(dir, "catalog")
	queue := filepath.Join(dir, "queue")
	vectors := filepath.Join(dir, "vectors.bolt")

	writeSized(t, db, 4096)
	writeSized(t, db+"-wal", 512)
	writeSized(t, filepath.Join(catalog, "index_meta.json"), 100)
	writeSized(t, filepath.Join(catalog, "store", "root.bolt"), 900)
	writeSized(t, filepath.Join(queue, "000001.vlog"), 2000)
	writeSized(t, filepath.Join(queue, "MANIFEST"), 16)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database only", []string{db}, 4096},
		{"database with missing shm", []string{db, db + "-wal", db + "-shm"}, 4608},
		{"nested catalog directory", []string{catalog}, 1000},
		{"all stores, vector file not created yet", []string{db, db + "-wal", catalog, queue, vectors}, 7624},
		{"in-memory queue has no path", []string{db, ""}, 4096},
		{"nothing on disk", []string{vectors}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatalf("DiskUsageBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestDiskUsageBytes_GrowsWithInsertedBooks(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "books.db")
	s, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	before, err := DiskUsageBytes(dbPath, dbPath+"-wal")
	if err != nil {
		t.Fatal(err)
	}
	if before == 0 {
		t.Fatal("expected a non-empty database file after schema init")
	}
	books := make([]*models.Book, 200)
	for i := range books {
		title := fmt.Sprintf("Book %03d", i)
		books[i] = &models.Book{Text: strings.Repeat(title+" ", 20), Title: title, Bookshelves: "read", AvgRating: 4}
	}
	if err := s.InsertBooks(context.Background(), books); err != nil {
		t.Fatal(err)
	}
	after, err := DiskUsageBytes(dbPath, dbPath+"-wal")
	if err != nil {
		t.Fatal(err)
	}
	if after <= before {
		t.Errorf("disk usage did not grow: before %d, after %d", before, after)
	}
}

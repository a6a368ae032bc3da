package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/bookworm/internal/models"
)

const serviceName = "record store"

// SQLiteStorage implements BookStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		avg_rating REAL NOT NULL DEFAULT 0,
		bookshelves TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_books_avg_rating ON books(avg_rating);
	`
	_, err := db.Exec(schema)
	return err
}

const insertBookSQL = `INSERT INTO books (text, title, author, avg_rating, bookshelves, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

const selectBookColumns = `SELECT id, text, title, author, avg_rating, bookshelves, created_at FROM books`

// InsertBook inserts a book and assigns its ID.
func (s *SQLiteStorage) InsertBook(ctx context.Context, b *models.Book) error {
	b.CreatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, insertBookSQL,
		b.Text, b.Title, b.Author, b.AvgRating, b.Bookshelves, b.CreatedAt,
	)
	if err != nil {
		return models.Upstream(serviceName, fmt.Errorf("insert book: %w", err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.Upstream(serviceName, fmt.Errorf("read inserted id: %w", err))
	}
	b.ID = id
	return nil
}

// InsertBooks inserts multiple books in a transaction.
func (s *SQLiteStorage) InsertBooks(ctx context.Context, books []*models.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Upstream(serviceName, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertBookSQL)
	if err != nil {
		return models.Upstream(serviceName, err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, b := range books {
		result, err := stmt.ExecContext(ctx, b.Text, b.Title, b.Author, b.AvgRating, b.Bookshelves, now)
		if err != nil {
			return models.Upstream(serviceName, fmt.Errorf("insert %q: %w", b.Title, err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			return models.Upstream(serviceName, err)
		}
		b.ID = id
		b.CreatedAt = now
	}
	if err := tx.Commit(); err != nil {
		return models.Upstream(serviceName, err)
	}
	return nil
}

// GetBook returns a book by ID.
func (s *SQLiteStorage) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	row := s.db.QueryRowContext(ctx, selectBookColumns+` WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, models.Upstream(serviceName, err)
	}
	return b, nil
}

// ListBooks returns books in insertion order with offset and limit.
func (s *SQLiteStorage) ListBooks(ctx context.Context, offset, limit int) ([]*models.Book, error) {
	return s.queryBooks(ctx, selectBookColumns+` ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
}

// SelectCandidates returns the ingestion candidates for q.
func (s *SQLiteStorage) SelectCandidates(ctx context.Context, q models.CandidateQuery) ([]*models.Book, error) {
	return s.queryBooks(ctx,
		selectBookColumns+` WHERE bookshelves LIKE '%' || ? || '%' AND avg_rating > ?
		 ORDER BY avg_rating DESC, id ASC LIMIT ? OFFSET ?`,
		q.Shelf, q.MinRating, q.Limit, q.Offset,
	)
}

// CountCandidates returns the number of books matching q's filter, ignoring paging.
func (s *SQLiteStorage) CountCandidates(ctx context.Context, q models.CandidateQuery) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE bookshelves LIKE '%' || ? || '%' AND avg_rating > ?`,
		q.Shelf, q.MinRating,
	).Scan(&count)
	if err != nil {
		return 0, models.Upstream(serviceName, err)
	}
	return count, nil
}

// CountBooks returns the total number of books.
func (s *SQLiteStorage) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, models.Upstream(serviceName, err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) queryBooks(ctx context.Context, query string, args ...any) ([]*models.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Upstream(serviceName, err)
	}
	defer rows.Close()

	books := make([]*models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, models.Upstream(serviceName, err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Upstream(serviceName, err)
	}
	return books, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*models.Book, error) {
	var b models.Book
	if err := row.Scan(&b.ID, &b.Text, &b.Title, &b.Author, &b.AvgRating, &b.Bookshelves, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

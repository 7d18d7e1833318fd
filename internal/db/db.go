package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS books (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			title          TEXT NOT NULL,
			published_year INTEGER NOT NULL DEFAULT 0,
			author_name    TEXT NOT NULL DEFAULT '',
			author_email   TEXT NOT NULL DEFAULT '',
			author_country TEXT NOT NULL DEFAULT '',
			created_at     INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create books: %w", err)
	}

	if _, err := d.sql.Exec(`CREATE INDEX IF NOT EXISTS idx_books_author_country ON books(author_country)`); err != nil {
		return fmt.Errorf("index books: %w", err)
	}
	return nil
}

// Reset drops every table and recreates an empty schema.
func (d *DB) Reset() error {
	for _, table := range []string{"books", "metadata"} {
		if _, err := d.sql.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return d.Migrate()
}

// AddBook inserts a new book and returns it with its assigned ID.
func (d *DB) AddBook(title string, year int, author Author) (*Book, error) {
	now := time.Now().Truncate(time.Millisecond)
	res, err := d.sql.Exec(`
		INSERT INTO books (title, published_year, author_name, author_email, author_country, created_at)
		VALUES (?,?,?,?,?,?)`,
		title, year, author.Name, author.Email, author.Country, now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := d.Touch(); err != nil {
		return nil, err
	}
	return &Book{ID: id, Title: title, PublishedYear: year, Author: author, CreatedAt: now}, nil
}

func (d *DB) GetBook(id int64) (*Book, error) {
	row := d.sql.QueryRow(`
		SELECT id, title, published_year, author_name, author_email, author_country, created_at
		FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return b, err
}

func (d *DB) LoadBooks() ([]*Book, error) {
	rows, err := d.sql.Query(`
		SELECT id, title, published_year, author_name, author_email, author_country, created_at
		FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// SearchBooksByAuthorCountry returns books whose author country matches
// country exactly.
func (d *DB) SearchBooksByAuthorCountry(country string) ([]*Book, error) {
	rows, err := d.sql.Query(`
		SELECT id, title, published_year, author_name, author_email, author_country, created_at
		FROM books WHERE author_country = ? ORDER BY id`, country)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// rowScanner is implemented by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var b Book
	var createdAt int64
	err := row.Scan(
		&b.ID, &b.Title, &b.PublishedYear,
		&b.Author.Name, &b.Author.Email, &b.Author.Country,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = time.UnixMilli(createdAt)
	return &b, nil
}

func collectBooks(rows *sql.Rows) ([]*Book, error) {
	defer rows.Close()
	books := []*Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (d *DB) SetMeta(key, value string) error {
	_, err := d.sql.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?,?)", key, value)
	return err
}

func (d *DB) GetMeta(key string) (string, error) {
	var value string
	err := d.sql.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (d *DB) Touch() error {
	return d.SetMeta("last_modified", fmt.Sprintf("%d", time.Now().UnixMilli()))
}

// LastModified returns the unix millisecond time of the last catalog write,
// or 0 if the catalog has never been written.
func (d *DB) LastModified() int64 {
	v, _ := d.GetMeta("last_modified")
	if v == "" {
		return 0
	}
	var ts int64
	fmt.Sscanf(v, "%d", &ts)
	return ts
}

// IsEmpty reports whether the catalog holds no books.
func (d *DB) IsEmpty() (bool, error) {
	var count int
	err := d.sql.QueryRow("SELECT COUNT(*) FROM books").Scan(&count)
	return count == 0, err
}

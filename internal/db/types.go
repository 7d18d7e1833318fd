package db

import "time"

// Author is stored inline with each book; it has no identity of its own.
type Author struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Country string `json:"country"`
}

type Book struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	PublishedYear int       `json:"published_year"`
	Author        Author    `json:"author"`
	CreatedAt     time.Time `json:"created_at"`
}

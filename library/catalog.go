package library

import (
	"strings"
	"time"
)

// SearchField selects which book column a catalog search matches against.
type SearchField string

const (
	SearchByTitle  SearchField = "title"
	SearchByAuthor SearchField = "author"
	SearchByGenre  SearchField = "genre"
)

// Catalog manages book registration and lookup. It never touches
// availability counters; those belong to the loan engine.
type Catalog struct {
	store *Store
	now   func() time.Time
}

// NewCatalog returns a catalog manager backed by store.
func NewCatalog(store *Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// RegisterBook validates and stores a new book. The genre choice is the
// 1-based index into Genres(). All copies start available.
func (c *Catalog) RegisterBook(title, author string, genreChoice, year, copies int) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationf("title cannot be empty")
	}
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, validationf("author cannot be empty")
	}

	genre, ok := GenreByChoice(genreChoice)
	if !ok {
		return nil, validationf("genre choice %d is out of range 1-%d", genreChoice, len(genres))
	}

	currentYear := c.now().Year()
	if year < MinPublicationYear || year > currentYear {
		return nil, validationf("publication year must be between %d and %d", MinPublicationYear, currentYear)
	}
	if copies < 1 {
		return nil, validationf("copy count must be at least 1")
	}

	book := &Book{
		Title:           title,
		Author:          author,
		Genre:           genre,
		PublicationYear: year,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	id, err := c.store.InsertBook(book)
	if err != nil {
		return nil, err
	}
	book.ID = id
	return book, nil
}

// SearchBooks finds books whose field contains term as a case-insensitive
// substring.
func (c *Catalog) SearchBooks(field SearchField, term string) ([]*Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, validationf("search term cannot be empty")
	}

	switch field {
	case SearchByTitle, SearchByAuthor, SearchByGenre:
	default:
		return nil, validationf("unknown search field %q", field)
	}

	return c.store.SearchBooks(string(field), term)
}

// ListBooks returns the whole catalog ordered by title.
func (c *Catalog) ListBooks() ([]*Book, error) {
	return c.store.ListBooks()
}

// AvailableBooks returns books that can be borrowed right now.
func (c *Catalog) AvailableBooks() ([]*Book, error) {
	return c.store.AvailableBooks()
}

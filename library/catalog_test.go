package library

import (
	"testing"
	"time"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(tempStore(t))
	c.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestRegisterBook(t *testing.T) {
	c := testCatalog(t)

	book, err := c.RegisterBook("  The Hobbit  ", "J.R.R. Tolkien", 3, 1937, 2)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if book.ID == 0 {
		t.Fatalf("missing assigned id")
	}
	if book.Title != "The Hobbit" {
		t.Fatalf("title not trimmed: %q", book.Title)
	}
	if book.Genre != GenreFantasy {
		t.Fatalf("want fantasy, got %s", book.Genre)
	}
	if book.AvailableCopies != 2 || book.TotalCopies != 2 {
		t.Fatalf("all copies should start available: %+v", book)
	}
}

func TestRegisterBookValidation(t *testing.T) {
	c := testCatalog(t)

	cases := []struct {
		name   string
		title  string
		author string
		genre  int
		year   int
		copies int
	}{
		{"empty title", "", "Author", 1, 2000, 1},
		{"empty author", "Title", "   ", 1, 2000, 1},
		{"genre too low", "Title", "Author", 0, 2000, 1},
		{"genre too high", "Title", "Author", 13, 2000, 1},
		{"year too early", "Title", "Author", 1, 1449, 1},
		{"year in future", "Title", "Author", 1, 2027, 1},
		{"zero copies", "Title", "Author", 1, 2000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.RegisterBook(tc.title, tc.author, tc.genre, tc.year, tc.copies)
			if !IsValidation(err) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}

	// Boundary years are accepted.
	if _, err := c.RegisterBook("Gutenberg Bible", "Johannes Gutenberg", 6, 1455, 1); err != nil {
		t.Fatalf("1455 should be valid: %v", err)
	}
	if _, err := c.RegisterBook("This Year", "Someone", 6, 2026, 1); err != nil {
		t.Fatalf("current year should be valid: %v", err)
	}
}

func TestSearchBooksByField(t *testing.T) {
	c := testCatalog(t)
	if _, err := c.RegisterBook("Dune", "Frank Herbert", 2, 1965, 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := c.RegisterBook("The Trial", "Franz Kafka", 1, 1925, 1); err != nil {
		t.Fatalf("register: %v", err)
	}

	byAuthor, err := c.SearchBooks(SearchByAuthor, "fran")
	if err != nil {
		t.Fatalf("search author: %v", err)
	}
	if len(byAuthor) != 2 {
		t.Fatalf("want both franks, got %d", len(byAuthor))
	}

	byGenre, err := c.SearchBooks(SearchByGenre, "science")
	if err != nil {
		t.Fatalf("search genre: %v", err)
	}
	if len(byGenre) != 1 || byGenre[0].Title != "Dune" {
		t.Fatalf("want dune, got %+v", byGenre)
	}

	if _, err := c.SearchBooks(SearchByTitle, "   "); !IsValidation(err) {
		t.Fatalf("empty term: want validation error, got %v", err)
	}
	if _, err := c.SearchBooks(SearchField("isbn"), "x"); !IsValidation(err) {
		t.Fatalf("unknown field: want validation error, got %v", err)
	}
}

func TestGenreByChoice(t *testing.T) {
	if g, ok := GenreByChoice(1); !ok || g != GenreRomance {
		t.Fatalf("choice 1: got %v %v", g, ok)
	}
	if g, ok := GenreByChoice(12); !ok || g != GenreOther {
		t.Fatalf("choice 12: got %v %v", g, ok)
	}
	if _, ok := GenreByChoice(0); ok {
		t.Fatalf("choice 0 should be rejected")
	}
	if _, ok := GenreByChoice(13); ok {
		t.Fatalf("choice 13 should be rejected")
	}
}

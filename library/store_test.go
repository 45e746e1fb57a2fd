package library

import (
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustBook(t *testing.T, s *Store, title string, genre Genre, copies int) *Book {
	t.Helper()
	b := &Book{
		Title:           title,
		Author:          "Author",
		Genre:           genre,
		PublicationYear: 2000,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	id, err := s.InsertBook(b)
	if err != nil {
		t.Fatalf("insert book %q: %v", title, err)
	}
	b.ID = id
	return b
}

func mustMember(t *testing.T, s *Store, name, email string, category MemberCategory) *Member {
	t.Helper()
	m := &Member{Name: name, Email: email, Category: category, Active: true}
	id, err := s.InsertMember(m)
	if err != nil {
		t.Fatalf("insert member %q: %v", name, err)
	}
	m.ID = id
	return m
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	store, err := OpenStore(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustBook(t, store, "Persisted", GenreOther, 1)
	store.Close()

	store, err = OpenStore(path, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer store.Close()

	books, err := store.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Persisted" {
		t.Fatalf("data lost across reopen: %+v", books)
	}
}

func TestInsertAndGetBook(t *testing.T) {
	store := tempStore(t)
	b := mustBook(t, store, "Dune", GenreScienceFiction, 2)

	got, err := store.Book(b.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.Title != "Dune" || got.Genre != GenreScienceFiction {
		t.Fatalf("wrong book: %+v", got)
	}
	if got.AvailableCopies != 2 || got.TotalCopies != 2 {
		t.Fatalf("wrong counters: %+v", got)
	}
}

func TestGetBookNotFound(t *testing.T) {
	store := tempStore(t)
	_, err := store.Book(999)
	if !IsNotFound(err) {
		t.Fatalf("want not-found, got %v", err)
	}
}

func TestListBooksOrderedByTitle(t *testing.T) {
	store := tempStore(t)
	mustBook(t, store, "Zebra Tales", GenreChildren, 1)
	mustBook(t, store, "Apple Farming", GenreScience, 1)
	mustBook(t, store, "Middle March", GenreRomance, 1)

	books, err := store.ListBooks()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("want 3 books, got %d", len(books))
	}
	want := []string{"Apple Farming", "Middle March", "Zebra Tales"}
	for i, title := range want {
		if books[i].Title != title {
			t.Fatalf("position %d: want %q, got %q", i, title, books[i].Title)
		}
	}
}

func TestSearchBooksCaseInsensitive(t *testing.T) {
	store := tempStore(t)
	mustBook(t, store, "The HOBBIT", GenreFantasy, 1)
	mustBook(t, store, "Dune", GenreScienceFiction, 1)

	books, err := store.SearchBooks("title", "hobbit")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(books) != 1 || books[0].Title != "The HOBBIT" {
		t.Fatalf("want the hobbit, got %+v", books)
	}
}

func TestInsertMemberDuplicateEmail(t *testing.T) {
	store := tempStore(t)
	mustMember(t, store, "Alice", "alice@example.com", CategoryStudent)

	_, err := store.InsertMember(&Member{
		Name:     "Another Alice",
		Email:    "alice@example.com",
		Category: CategoryTeacher,
		Active:   true,
	})
	if !IsConflict(err) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestMemberPhoneRoundTrip(t *testing.T) {
	store := tempStore(t)

	withPhone := &Member{Name: "Bob", Email: "bob@example.com", Phone: "11999998888", Category: CategoryStudent, Active: true}
	id, err := store.InsertMember(withPhone)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := store.Member(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phone != "11999998888" {
		t.Fatalf("phone lost: %+v", got)
	}

	noPhone := mustMember(t, store, "Carol", "carol@example.com", CategoryTeacher)
	got, err = store.Member(noPhone.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phone != "" {
		t.Fatalf("want empty phone, got %q", got.Phone)
	}
}

func TestSetMemberActive(t *testing.T) {
	store := tempStore(t)
	m := mustMember(t, store, "Alice", "alice@example.com", CategoryStudent)

	if err := store.SetMemberActive(m.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := store.Member(m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatalf("member should be inactive")
	}

	if err := store.SetMemberActive(999, false); !IsNotFound(err) {
		t.Fatalf("want not-found, got %v", err)
	}
}

func TestActiveMembersExcludesInactive(t *testing.T) {
	store := tempStore(t)
	mustMember(t, store, "Alice", "alice@example.com", CategoryStudent)
	inactive := mustMember(t, store, "Bob", "bob@example.com", CategoryTeacher)
	if err := store.SetMemberActive(inactive.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	members, err := store.ActiveMembers()
	if err != nil {
		t.Fatalf("active members: %v", err)
	}
	if len(members) != 1 || members[0].Name != "Alice" {
		t.Fatalf("want only Alice, got %+v", members)
	}
}

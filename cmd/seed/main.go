// Command seed loads a demo data set: a shelf of books across several
// genres, a few members of both categories, and a couple of open loans.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"library-lending/config"
	"library-lending/library"
)

type seedBook struct {
	title  string
	author string
	genre  int // 1-based choice into library.Genres()
	year   int
	copies int
}

type seedMember struct {
	name     string
	email    string
	phone    string
	category library.MemberCategory
}

func main() {
	configPath := flag.String("config", "library.yaml", "path to YAML config file")
	fresh := flag.Bool("fresh", false, "delete the database file before seeding")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *fresh {
		for _, suffix := range []string{"", "-shm", "-wal"} {
			path := cfg.Database.Path + suffix
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: could not remove %s: %v\n", path, err)
			}
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := library.OpenStore(cfg.Database.Path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	catalog := library.NewCatalog(store)
	membership := library.NewMembership(store)
	engine := library.NewLoanEngine(store, cfg.LoanPolicy(), logger)

	books := []seedBook{
		{"1984", "George Orwell", 2, 1949, 3},
		{"Brave New World", "Aldous Huxley", 2, 1932, 2},
		{"The Hobbit", "J.R.R. Tolkien", 3, 1937, 2},
		{"Dracula", "Bram Stoker", 4, 1897, 1},
		{"A Brief History of Time", "Stephen Hawking", 7, 1988, 2},
		{"The Pragmatic Programmer", "Andrew Hunt", 8, 1999, 2},
		{"Pride and Prejudice", "Jane Austen", 1, 1813, 2},
		{"The Diary of a Young Girl", "Anne Frank", 5, 1947, 1},
		{"Sapiens", "Yuval Noah Harari", 6, 2011, 3},
		{"The Little Prince", "Antoine de Saint-Exupery", 11, 1943, 2},
	}

	members := []seedMember{
		{"Alice Martins", "alice@example.com", "11999990001", library.CategoryStudent},
		{"Bruno Costa", "bruno@example.com", "11999990002", library.CategoryStudent},
		{"Carla Souza", "carla@example.com", "", library.CategoryTeacher},
		{"Daniel Lima", "daniel@example.com", "11999990004", library.CategoryTeacher},
	}

	var bookIDs, memberIDs []int64
	created, skipped := 0, 0

	for _, b := range books {
		book, err := catalog.RegisterBook(b.title, b.author, b.genre, b.year, b.copies)
		if err != nil {
			fmt.Printf("skip book %q: %v\n", b.title, err)
			skipped++
			continue
		}
		bookIDs = append(bookIDs, book.ID)
		created++
	}

	for _, m := range members {
		member, err := membership.RegisterMember(m.name, m.email, m.phone, m.category)
		if err != nil {
			if library.IsConflict(err) {
				fmt.Printf("skip member %q: already registered\n", m.name)
			} else {
				fmt.Printf("skip member %q: %v\n", m.name, err)
			}
			skipped++
			continue
		}
		memberIDs = append(memberIDs, member.ID)
		created++
	}

	// A couple of open loans so reports have something to show.
	if len(bookIDs) >= 2 && len(memberIDs) >= 2 {
		for i, pair := range [][2]int64{
			{memberIDs[0], bookIDs[0]},
			{memberIDs[1], bookIDs[1]},
		} {
			if _, err := engine.OpenLoan(pair[0], pair[1]); err != nil {
				fmt.Printf("skip loan %d: %v\n", i+1, err)
				skipped++
				continue
			}
			created++
		}
	}

	fmt.Printf("\nSeed complete: %d records created, %d skipped.\n", created, skipped)
}

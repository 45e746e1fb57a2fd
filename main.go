package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/library"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// app bundles the four components behind the menu.
type app struct {
	catalog    *library.Catalog
	membership *library.Membership
	loans      *library.LoanEngine
	reports    *library.Reports
	scanner    *bufio.Scanner
	width      int
}

func main() {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "library-lending",
		Short: "Menu-driven library loan tracking over a shared SQLite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(configPath, verbose)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "library.yaml", "path to YAML config file")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"library.log"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func runMenu(configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	store, err := library.OpenStore(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	policy := cfg.LoanPolicy()
	a := &app{
		catalog:    library.NewCatalog(store),
		membership: library.NewMembership(store),
		loans:      library.NewLoanEngine(store, policy, logger),
		reports:    library.NewReports(store, policy),
		scanner:    bufio.NewScanner(os.Stdin),
		width:      terminalWidth(),
	}

	fmt.Println(headerStyle.Render("Library Lending"))
	fmt.Println("Available commands:")
	fmt.Println("  Books: add book, list books, search book")
	fmt.Println("  Members: add member, list members")
	fmt.Println("  Circulation: open loan, close loan")
	fmt.Println("  Reports: loan report, stats, top books")
	fmt.Println("  System: exit")

	for {
		fmt.Print("\n> ")
		if !a.scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(a.scanner.Text())

		switch cmd {
		case "add book":
			a.handleAddBook()
		case "add member":
			a.handleAddMember()
		case "open loan":
			a.handleOpenLoan()
		case "close loan":
			a.handleCloseLoan()
		case "list books":
			a.handleListBooks()
		case "list members":
			a.handleListMembers()
		case "search book":
			a.handleSearchBooks()
		case "loan report":
			a.handleLoanReport()
		case "stats":
			a.handleStatistics()
		case "top books":
			a.handleTopBooks()
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		case "":
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return nil
}

// terminalWidth reports the terminal width for table truncation, falling
// back to 80 columns when stdout is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w >= 40 {
		return w
	}
	return 80
}

func (a *app) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !a.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.scanner.Text()), true
}

func (a *app) promptInt(label string) (int, bool) {
	text, ok := a.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		fmt.Println(errorStyle.Render("Enter a valid number."))
		return 0, false
	}
	return n, true
}

// fail prints a domain error with a kind-appropriate prefix.
func fail(err error) {
	switch {
	case library.IsValidation(err):
		fmt.Println(errorStyle.Render("Invalid input: " + err.Error()))
	case library.IsNotFound(err):
		fmt.Println(warnStyle.Render(err.Error()))
	case library.IsConflict(err), library.IsCapacity(err):
		fmt.Println(warnStyle.Render(err.Error()))
	default:
		fmt.Println(errorStyle.Render("Operation failed: " + err.Error()))
	}
}

func (a *app) handleAddBook() {
	title, ok := a.prompt("Title: ")
	if !ok {
		return
	}
	author, ok := a.prompt("Author: ")
	if !ok {
		return
	}

	fmt.Println("Genres:")
	for i, g := range library.Genres() {
		fmt.Printf("  %2d. %s\n", i+1, g)
	}
	choice, ok := a.promptInt("Genre number: ")
	if !ok {
		return
	}
	year, ok := a.promptInt("Publication year: ")
	if !ok {
		return
	}

	copiesText, ok := a.prompt("Copies (default 1): ")
	if !ok {
		return
	}
	copies := 1
	if copiesText != "" {
		n, err := strconv.Atoi(copiesText)
		if err != nil {
			fmt.Println(errorStyle.Render("Enter a valid number."))
			return
		}
		copies = n
	}

	book, err := a.catalog.RegisterBook(title, author, choice, year, copies)
	if err != nil {
		fail(err)
		return
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Registered %q by %s (ID %d, %d copies)",
		book.Title, book.Author, book.ID, book.TotalCopies)))
}

func (a *app) handleAddMember() {
	name, ok := a.prompt("Full name: ")
	if !ok {
		return
	}
	email, ok := a.prompt("Email: ")
	if !ok {
		return
	}
	phone, ok := a.prompt("Phone (optional): ")
	if !ok {
		return
	}
	categoryText, ok := a.prompt("Category (1=Student, 2=Teacher): ")
	if !ok {
		return
	}

	var category library.MemberCategory
	switch categoryText {
	case "1":
		category = library.CategoryStudent
	case "2":
		category = library.CategoryTeacher
	default:
		fmt.Println(errorStyle.Render("Choose 1 or 2."))
		return
	}

	member, err := a.membership.RegisterMember(name, email, phone, category)
	if err != nil {
		fail(err)
		return
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Registered %s (%s, ID %d)",
		member.Name, member.Category, member.ID)))
}

func (a *app) handleOpenLoan() {
	members, err := a.membership.ActiveMembers()
	if err != nil {
		fail(err)
		return
	}
	if len(members) == 0 {
		fmt.Println(warnStyle.Render("No active members registered."))
		return
	}
	fmt.Println("Active members:")
	for _, m := range members {
		fmt.Printf("  ID %d: %s (%s)\n", m.ID, m.Name, m.Category)
	}
	memberID, ok := a.promptInt("Member ID: ")
	if !ok {
		return
	}

	books, err := a.catalog.AvailableBooks()
	if err != nil {
		fail(err)
		return
	}
	if len(books) == 0 {
		fmt.Println(warnStyle.Render("No books available for loan."))
		return
	}
	fmt.Println("Available books:")
	for _, b := range books {
		fmt.Printf("  ID %d: %s - %s (%d available)\n", b.ID, b.Title, b.Author, b.AvailableCopies)
	}
	bookID, ok := a.promptInt("Book ID: ")
	if !ok {
		return
	}

	loan, err := a.loans.OpenLoan(int64(memberID), int64(bookID))
	if err != nil {
		fail(err)
		return
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Loan %d opened; due %s",
		loan.ID, loan.DueDate.Format("2006-01-02"))))
}

func (a *app) handleCloseLoan() {
	records, err := a.reports.Loans(library.LoansActive)
	if err != nil {
		fail(err)
		return
	}
	if len(records) == 0 {
		fmt.Println(warnStyle.Render("No active loans."))
		return
	}

	fmt.Printf("%-5s %-20s %-25s %-12s %s\n", "ID", "Member", "Book", "Due", "Status")
	fmt.Println(strings.Repeat("-", min(a.width, 78)))
	for _, rec := range records {
		status := okStyle.Render("on time")
		if rec.DaysLate > 0 {
			status = warnStyle.Render(fmt.Sprintf("%dd late", rec.DaysLate))
		}
		fmt.Printf("%-5d %-20s %-25s %-12s %s\n",
			rec.ID,
			truncate(rec.MemberName, 20),
			truncate(rec.BookTitle, 25),
			rec.DueDate.Format("2006-01-02"),
			status)
	}

	loanID, ok := a.promptInt("Loan ID to close: ")
	if !ok {
		return
	}

	loan, err := a.loans.CloseLoan(int64(loanID))
	if err != nil {
		fail(err)
		return
	}
	if loan.Fine > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Returned late; fine %.2f", loan.Fine)))
	} else {
		fmt.Println(okStyle.Render("Returned on time, no fine."))
	}
}

func (a *app) handleListBooks() {
	books, err := a.catalog.ListBooks()
	if err != nil {
		fail(err)
		return
	}
	if len(books) == 0 {
		fmt.Println(warnStyle.Render("No books registered."))
		return
	}

	titleWidth := min(a.width-50, 40)
	if titleWidth < 20 {
		titleWidth = 20
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("Catalog (%d titles)", len(books))))
	fmt.Printf("%-5s %-*s %-20s %-15s %s\n", "ID", titleWidth, "Title", "Author", "Genre", "Avail")
	for _, b := range books {
		fmt.Printf("%-5d %-*s %-20s %-15s %s\n",
			b.ID,
			titleWidth, truncate(b.Title, titleWidth),
			truncate(b.Author, 20),
			truncate(string(b.Genre), 15),
			availabilityIndicator(b))
	}
}

// availabilityIndicator renders the copies counter colored by how many are
// left: all, some, or none.
func availabilityIndicator(b *library.Book) string {
	counter := fmt.Sprintf("%d/%d", b.AvailableCopies, b.TotalCopies)
	switch {
	case b.AvailableCopies == 0:
		return errorStyle.Render(counter)
	case b.AvailableCopies < b.TotalCopies:
		return warnStyle.Render(counter)
	default:
		return okStyle.Render(counter)
	}
}

func (a *app) handleListMembers() {
	summaries, err := a.membership.ListMembers()
	if err != nil {
		fail(err)
		return
	}
	if len(summaries) == 0 {
		fmt.Println(warnStyle.Render("No members registered."))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Members (%d)", len(summaries))))
	for _, s := range summaries {
		status := okStyle.Render("active")
		if !s.Active {
			status = dimStyle.Render("inactive")
		}
		phone := s.Phone
		if phone == "" {
			phone = "-"
		}
		fmt.Printf("  %s (ID %d) %s\n", s.Name, s.ID, status)
		fmt.Printf("    %s | %s | %s | active loans: %d\n",
			s.Email, phone, s.Category, s.ActiveLoans)
	}
}

func (a *app) handleSearchBooks() {
	fmt.Println("Search by: 1. title  2. author  3. genre")
	choice, ok := a.prompt("Field: ")
	if !ok {
		return
	}
	fields := map[string]library.SearchField{
		"1": library.SearchByTitle,
		"2": library.SearchByAuthor,
		"3": library.SearchByGenre,
	}
	field, found := fields[choice]
	if !found {
		fmt.Println(errorStyle.Render("Choose 1, 2, or 3."))
		return
	}

	term, ok := a.prompt("Search term: ")
	if !ok {
		return
	}

	books, err := a.catalog.SearchBooks(field, term)
	if err != nil {
		fail(err)
		return
	}
	if len(books) == 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("No books matched %q.", term)))
		return
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("Found %d book(s):", len(books))))
	for _, b := range books {
		fmt.Printf("  %s (ID %d)\n", b.Title, b.ID)
		fmt.Printf("    %s | %s | %d | %s available\n",
			b.Author, b.Genre, b.PublicationYear, availabilityIndicator(b))
	}
}

func (a *app) handleLoanReport() {
	fmt.Println("Filter: 1. all  2. active  3. returned  4. overdue")
	choice, ok := a.prompt("Choice: ")
	if !ok {
		return
	}
	filters := map[string]library.LoanFilter{
		"1": library.LoansAll,
		"2": library.LoansActive,
		"3": library.LoansReturned,
		"4": library.LoansOverdue,
	}
	filter, found := filters[choice]
	if !found {
		fmt.Println(errorStyle.Render("Choose 1-4."))
		return
	}

	records, err := a.reports.Loans(filter)
	if err != nil {
		fail(err)
		return
	}
	if len(records) == 0 {
		fmt.Println(warnStyle.Render("No loans matched."))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Loans (%d)", len(records))))
	for _, rec := range records {
		fmt.Printf("  Loan #%d: %q to %s (%s)\n",
			rec.ID, truncate(rec.BookTitle, 40), rec.MemberName, rec.MemberCategory)
		line := fmt.Sprintf("    out %s, due %s",
			rec.LoanDate.Format("2006-01-02"), rec.DueDate.Format("2006-01-02"))
		if rec.ReturnDate != nil {
			line += ", returned " + rec.ReturnDate.Format("2006-01-02")
		}
		fmt.Println(line)

		switch {
		case rec.Status == library.LoanReturned && rec.Fine > 0:
			fmt.Println(warnStyle.Render(fmt.Sprintf("    returned with fine %.2f", rec.Fine)))
		case rec.Status == library.LoanReturned:
			fmt.Println(okStyle.Render("    returned, no fine"))
		case rec.DaysLate > 0:
			fmt.Println(errorStyle.Render(fmt.Sprintf("    OVERDUE %d day(s), accrued fine %.2f",
				rec.DaysLate, rec.AccruedFine)))
		default:
			fmt.Println(okStyle.Render(fmt.Sprintf("    active, %d day(s) remaining", rec.DaysRemaining)))
		}
	}
}

func (a *app) handleStatistics() {
	stats, err := a.reports.Statistics()
	if err != nil {
		fail(err)
		return
	}

	fmt.Println(headerStyle.Render("Library statistics"))
	fmt.Println("Catalog:")
	fmt.Printf("  titles %d | copies %d | available %d | on loan %d\n",
		stats.TotalTitles, stats.TotalCopies, stats.AvailableCopies, stats.BorrowedCopies)
	fmt.Println("Members:")
	fmt.Printf("  total %d | active %d | inactive %d | students %d | teachers %d\n",
		stats.TotalMembers, stats.ActiveMembers, stats.InactiveMembers, stats.Students, stats.Teachers)
	fmt.Println("Loans:")
	fmt.Printf("  total %d | active %d | returned %d | overdue %d\n",
		stats.TotalLoans, stats.ActiveLoans, stats.ReturnedLoans, stats.OverdueLoans)
	if stats.FineTotal > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  fines collected: %.2f", stats.FineTotal)))
	}

	histogram, err := a.reports.GenreHistogram()
	if err != nil {
		fail(err)
		return
	}
	if len(histogram) > 0 {
		fmt.Println("Titles by genre:")
		for _, g := range histogram {
			fmt.Printf("  %-16s %s (%d)\n", g.Genre, strings.Repeat("#", g.Count), g.Count)
		}
	}
}

func (a *app) handleTopBooks() {
	ranking, err := a.reports.TopBorrowed(5)
	if err != nil {
		fail(err)
		return
	}
	if len(ranking) == 0 {
		fmt.Println(warnStyle.Render("No loans recorded yet."))
		return
	}

	fmt.Println(headerStyle.Render("Most borrowed books"))
	for i, entry := range ranking {
		fmt.Printf("  %d. %s - %s (%d loan(s))\n", i+1, entry.Title, entry.Author, entry.LoanCount)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}

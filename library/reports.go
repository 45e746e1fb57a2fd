package library

import (
	"time"

	"github.com/doug-martin/goqu/v9"
)

// LoanFilter selects which loans a report covers.
type LoanFilter int

const (
	LoansAll LoanFilter = iota
	LoansActive
	LoansReturned
	// LoansOverdue covers Active loans whose due date has passed.
	LoansOverdue
)

// LoanRecord is a loan joined with its member and book for display. The
// joined columns come from one SQL join rather than per-row lookups.
// DaysLate, DaysRemaining, and AccruedFine are derived against the report
// clock at query time.
type LoanRecord struct {
	Loan
	MemberName     string         `db:"member_name"`
	MemberCategory MemberCategory `db:"member_category"`
	BookTitle      string         `db:"book_title"`
	BookAuthor     string         `db:"book_author"`

	DaysLate      int     `db:"-"`
	DaysRemaining int     `db:"-"`
	AccruedFine   float64 `db:"-"`
}

// GenreCount is one bar of the genre histogram.
type GenreCount struct {
	Genre Genre `db:"genre"`
	Count int   `db:"n"`
}

// BookBorrowCount ranks a book by how often it has been borrowed.
type BookBorrowCount struct {
	BookID    int64  `db:"book_id"`
	Title     string `db:"title"`
	Author    string `db:"author"`
	LoanCount int    `db:"loan_count"`
	FirstLoan int64  `db:"first_loan"`
}

// Statistics aggregates the whole store for the statistics screen.
type Statistics struct {
	TotalTitles     int
	TotalCopies     int
	AvailableCopies int
	BorrowedCopies  int

	TotalMembers    int
	ActiveMembers   int
	InactiveMembers int
	Students        int
	Teachers        int

	TotalLoans    int
	ActiveLoans   int
	ReturnedLoans int
	OverdueLoans  int
	FineTotal     float64
}

// Reports provides the read-only aggregations. Every call reads committed
// store state; nothing is cached between calls.
type Reports struct {
	store  *Store
	policy LoanPolicy
	now    func() time.Time
}

// NewReports returns a reporting view over store. The policy supplies the
// daily rate for accrued-fine estimates on overdue loans.
func NewReports(store *Store, policy LoanPolicy) *Reports {
	return &Reports{store: store, policy: policy, now: time.Now}
}

// Loans returns loans matching filter, newest first, each joined with its
// member and book and annotated with overdue information.
func (r *Reports) Loans(filter LoanFilter) ([]*LoanRecord, error) {
	ds := dialect.From(tableLoans).
		Select(
			goqu.I("loans.id"),
			goqu.I("loans.book_id"),
			goqu.I("loans.member_id"),
			goqu.I("loans.loan_date"),
			goqu.I("loans.due_date"),
			goqu.I("loans.return_date"),
			goqu.I("loans.status"),
			goqu.I("loans.fine"),
			goqu.I("members.name").As("member_name"),
			goqu.I("members.category").As("member_category"),
			goqu.I("books.title").As("book_title"),
			goqu.I("books.author").As("book_author"),
		).
		Join(goqu.T(tableMembers), goqu.On(goqu.I("members.id").Eq(goqu.I("loans.member_id")))).
		Join(goqu.T(tableBooks), goqu.On(goqu.I("books.id").Eq(goqu.I("loans.book_id")))).
		Order(goqu.I("loans.id").Desc())

	switch filter {
	case LoansActive, LoansOverdue:
		ds = ds.Where(goqu.Ex{"loans.status": LoanActive})
	case LoansReturned:
		ds = ds.Where(goqu.Ex{"loans.status": LoanReturned})
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build loan report", err)
	}

	var records []*LoanRecord
	if err := r.store.db.Select(&records, query, args...); err != nil {
		return nil, storeErr("select loan report", err)
	}

	today := dateOnly(r.now())
	annotated := records[:0]
	for _, rec := range records {
		r.annotate(rec, today)
		if filter == LoansOverdue && rec.DaysLate == 0 {
			continue
		}
		annotated = append(annotated, rec)
	}
	return annotated, nil
}

// annotate fills the derived overdue fields of an Active loan record.
func (r *Reports) annotate(rec *LoanRecord, today time.Time) {
	if rec.Status != LoanActive {
		return
	}
	rec.DaysLate = lateDays(rec.DueDate, today)
	if rec.DaysLate > 0 {
		rec.AccruedFine = round2(float64(rec.DaysLate) * r.policy.DailyFineRate)
	} else {
		rec.DaysRemaining = daysBetween(today, rec.DueDate)
	}
}

// MemberLoanCounts returns each member with their Active-loan count, ordered
// by name. Counts are computed live from the loans table.
func (r *Reports) MemberLoanCounts() ([]*MemberSummary, error) {
	return NewMembership(r.store).ListMembers()
}

// GenreHistogram counts catalog titles per genre, most common first; ties
// order alphabetically.
func (r *Reports) GenreHistogram() ([]*GenreCount, error) {
	query, args, err := dialect.From(tableBooks).
		Select(goqu.I("genre"), goqu.COUNT("*").As("n")).
		GroupBy(goqu.I("genre")).
		Order(goqu.I("n").Desc(), goqu.I("genre").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build genre histogram", err)
	}

	var counts []*GenreCount
	if err := r.store.db.Select(&counts, query, args...); err != nil {
		return nil, storeErr("select genre histogram", err)
	}
	return counts, nil
}

// TopBorrowed returns the n most-borrowed books by total loan count,
// descending. Ties keep encounter order: the book whose first loan came
// earlier ranks first.
func (r *Reports) TopBorrowed(n int) ([]*BookBorrowCount, error) {
	if n < 1 {
		return nil, validationf("ranking size must be at least 1")
	}

	query, args, err := dialect.From(tableLoans).
		Select(
			goqu.I("loans.book_id"),
			goqu.I("books.title"),
			goqu.I("books.author"),
			goqu.COUNT("*").As("loan_count"),
			goqu.MIN(goqu.I("loans.id")).As("first_loan"),
		).
		Join(goqu.T(tableBooks), goqu.On(goqu.I("books.id").Eq(goqu.I("loans.book_id")))).
		GroupBy(goqu.I("loans.book_id")).
		Order(goqu.I("loan_count").Desc(), goqu.I("first_loan").Asc()).
		Limit(uint(n)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build borrow ranking", err)
	}

	var ranking []*BookBorrowCount
	if err := r.store.db.Select(&ranking, query, args...); err != nil {
		return nil, storeErr("select borrow ranking", err)
	}
	return ranking, nil
}

// FineTotal sums fines across all loans, closed ones included.
func (r *Reports) FineTotal() (float64, error) {
	query, args, err := dialect.From(tableLoans).
		Select(goqu.L("COALESCE(SUM(fine), 0)")).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, storeErr("build fine total", err)
	}

	var total float64
	if err := r.store.db.Get(&total, query, args...); err != nil {
		return 0, storeErr("sum fines", err)
	}
	return round2(total), nil
}

// Statistics aggregates catalog, membership, and circulation totals in one
// pass over the three collections.
func (r *Reports) Statistics() (*Statistics, error) {
	books, err := r.store.ListBooks()
	if err != nil {
		return nil, err
	}
	members, err := r.store.ListMembers()
	if err != nil {
		return nil, err
	}
	loans, err := r.store.Loans()
	if err != nil {
		return nil, err
	}

	stats := &Statistics{TotalTitles: len(books), TotalMembers: len(members), TotalLoans: len(loans)}

	for _, b := range books {
		stats.TotalCopies += b.TotalCopies
		stats.AvailableCopies += b.AvailableCopies
	}
	stats.BorrowedCopies = stats.TotalCopies - stats.AvailableCopies

	for _, m := range members {
		if m.Active {
			stats.ActiveMembers++
		} else {
			stats.InactiveMembers++
		}
		switch m.Category {
		case CategoryStudent:
			stats.Students++
		case CategoryTeacher:
			stats.Teachers++
		}
	}

	today := dateOnly(r.now())
	var fines float64
	for _, l := range loans {
		fines += l.Fine
		switch l.Status {
		case LoanActive:
			stats.ActiveLoans++
			if lateDays(l.DueDate, today) > 0 {
				stats.OverdueLoans++
			}
		case LoanReturned:
			stats.ReturnedLoans++
		}
	}
	stats.FineTotal = round2(fines)

	return stats, nil
}

package library

import "time"

// Genre is one of the fixed set of genres a book can be registered under.
type Genre string

const (
	GenreRomance        Genre = "Romance"
	GenreScienceFiction Genre = "Science Fiction"
	GenreFantasy        Genre = "Fantasy"
	GenreHorror         Genre = "Horror"
	GenreBiography      Genre = "Biography"
	GenreHistory        Genre = "History"
	GenreScience        Genre = "Science"
	GenreTechnology     Genre = "Technology"
	GenreSelfHelp       Genre = "Self-Help"
	GenreEducation      Genre = "Education"
	GenreChildren       Genre = "Children"
	GenreOther          Genre = "Other"
)

var genres = []Genre{
	GenreRomance, GenreScienceFiction, GenreFantasy, GenreHorror,
	GenreBiography, GenreHistory, GenreScience, GenreTechnology,
	GenreSelfHelp, GenreEducation, GenreChildren, GenreOther,
}

// Genres returns the full genre list in menu order.
func Genres() []Genre {
	out := make([]Genre, len(genres))
	copy(out, genres)
	return out
}

// GenreByChoice maps a 1-based menu choice to its genre.
func GenreByChoice(choice int) (Genre, bool) {
	if choice < 1 || choice > len(genres) {
		return "", false
	}
	return genres[choice-1], true
}

// MemberCategory determines how long a member may keep a borrowed book.
type MemberCategory string

const (
	CategoryStudent MemberCategory = "Student"
	CategoryTeacher MemberCategory = "Teacher"
)

// LoanStatus is the lifecycle state of a loan. Returned is terminal.
type LoanStatus string

const (
	LoanActive   LoanStatus = "Active"
	LoanReturned LoanStatus = "Returned"
)

// MinPublicationYear is the earliest publication year a book may carry.
const MinPublicationYear = 1450

// Book represents a title in the catalog together with its copy counters.
// AvailableCopies is mutated only by the loan lifecycle engine and always
// stays within [0, TotalCopies].
type Book struct {
	ID              int64  `db:"id" json:"id"`
	Title           string `db:"title" json:"title"`
	Author          string `db:"author" json:"author"`
	Genre           Genre  `db:"genre" json:"genre"`
	PublicationYear int    `db:"publication_year" json:"publication_year"`
	TotalCopies     int    `db:"total_copies" json:"total_copies"`
	AvailableCopies int    `db:"available_copies" json:"available_copies"`
}

// Member represents a registered library member. The Active flag gates
// eligibility to borrow.
type Member struct {
	ID       int64          `db:"id" json:"id"`
	Name     string         `db:"name" json:"name"`
	Email    string         `db:"email" json:"email"`
	Phone    string         `db:"phone" json:"phone,omitempty"`
	Category MemberCategory `db:"category" json:"category"`
	Active   bool           `db:"active" json:"active"`
}

// Loan references a book and a member by identifier and tracks the open →
// returned lifecycle. Fine stays zero while the loan is open and is computed
// once at close time.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	MemberID   int64      `db:"member_id" json:"member_id"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	Status     LoanStatus `db:"status" json:"status"`
	Fine       float64    `db:"fine" json:"fine"`
}

// LoanPolicy carries the circulation rules. The defaults implement the
// standard policy: three concurrent loans per member, 7-day student and
// 14-day teacher terms, one currency unit of fine per day late.
type LoanPolicy struct {
	MaxActiveLoans  int
	StudentLoanDays int
	TeacherLoanDays int
	DailyFineRate   float64
}

// DefaultLoanPolicy returns the standard circulation policy.
func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		MaxActiveLoans:  3,
		StudentLoanDays: 7,
		TeacherLoanDays: 14,
		DailyFineRate:   1.00,
	}
}

// LoanDays returns the loan term in days for a member category.
func (p LoanPolicy) LoanDays(category MemberCategory) int {
	if category == CategoryTeacher {
		return p.TeacherLoanDays
	}
	return p.StudentLoanDays
}

// dateOnly truncates t to midnight UTC so day arithmetic is immune to
// time-of-day and DST drift.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole calendar days from a to b; negative when
// b precedes a.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

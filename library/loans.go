package library

import (
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LoanEngine enforces the borrowing rules and owns the only two mutations
// that span collections: opening a loan (create loan + decrement
// availability) and closing one (finalize loan + increment availability).
// Each runs inside a single store transaction so partial application can
// never corrupt the availability counters.
//
// The current date is injected through the now func so due dates and fines
// are deterministic under test; it defaults to the wall clock.
type LoanEngine struct {
	store  *Store
	policy LoanPolicy
	log    *zap.Logger
	now    func() time.Time
}

// NewLoanEngine returns a loan engine backed by store, applying policy.
// A nil logger disables logging.
func NewLoanEngine(store *Store, policy LoanPolicy, log *zap.Logger) *LoanEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanEngine{store: store, policy: policy, log: log, now: time.Now}
}

// OpenLoan checks eligibility and opens an Active loan for the (member,
// book) pair, taking one available copy. All checks run inside the same
// transaction as the writes so a concurrent session cannot slip a
// conflicting loan in between.
func (e *LoanEngine) OpenLoan(memberID, bookID int64) (*Loan, error) {
	today := dateOnly(e.now())

	var created *Loan
	err := e.store.InTx(func(tx *sqlx.Tx) error {
		member, err := getMember(tx, memberID)
		if err != nil {
			return err
		}
		if !member.Active {
			return notFoundf("member %d is inactive and cannot borrow", memberID)
		}

		active, err := countActiveLoans(tx, memberID)
		if err != nil {
			return err
		}
		if active >= e.policy.MaxActiveLoans {
			return capacityf("member %d already has %d active loans (limit %d)",
				memberID, active, e.policy.MaxActiveLoans)
		}

		book, err := getBook(tx, bookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies == 0 {
			return notFoundf("book %d has no available copies", bookID)
		}

		duplicate, err := hasActiveLoan(tx, memberID, bookID)
		if err != nil {
			return err
		}
		if duplicate {
			return conflictf("member %d already has an active loan for book %d", memberID, bookID)
		}

		loan := &Loan{
			BookID:   bookID,
			MemberID: memberID,
			LoanDate: today,
			DueDate:  today.AddDate(0, 0, e.policy.LoanDays(member.Category)),
			Status:   LoanActive,
		}
		id, err := insertLoan(tx, loan)
		if err != nil {
			return err
		}
		loan.ID = id

		if err := adjustAvailability(tx, bookID, -1); err != nil {
			return err
		}

		created = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("loan opened",
		zap.Int64("loan_id", created.ID),
		zap.Int64("member_id", memberID),
		zap.Int64("book_id", bookID),
		zap.Time("due_date", created.DueDate),
	)
	return created, nil
}

// CloseLoan transitions an Active loan to Returned, computes the overdue
// fine, and returns the copy to the shelf. Returned is terminal: closing an
// already-closed loan is a conflict and leaves it unchanged.
func (e *LoanEngine) CloseLoan(loanID int64) (*Loan, error) {
	today := dateOnly(e.now())

	var closed *Loan
	err := e.store.InTx(func(tx *sqlx.Tx) error {
		loan, err := getLoan(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status == LoanReturned {
			return conflictf("loan %d is already returned", loanID)
		}

		daysLate := lateDays(loan.DueDate, today)
		fine := round2(float64(daysLate) * e.policy.DailyFineRate)

		if err := closeLoanRow(tx, loanID, today, fine); err != nil {
			return err
		}
		if err := adjustAvailability(tx, loan.BookID, +1); err != nil {
			return err
		}

		loan.Status = LoanReturned
		loan.ReturnDate = &today
		loan.Fine = fine
		closed = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("loan closed",
		zap.Int64("loan_id", closed.ID),
		zap.Int64("member_id", closed.MemberID),
		zap.Int64("book_id", closed.BookID),
		zap.Float64("fine", closed.Fine),
	)
	return closed, nil
}

// lateDays returns how many whole calendar days past due a loan is on the
// given date. Never negative; a loan closed exactly on its due date is zero
// days late.
func lateDays(dueDate, on time.Time) int {
	late := daysBetween(dueDate, on)
	if late < 0 {
		return 0
	}
	return late
}

// round2 rounds to two decimal places, the currency granularity of fines.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

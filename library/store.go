package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // driver
	"go.uber.org/zap"
)

const (
	tableBooks   = "books"
	tableMembers = "members"
	tableLoans   = "loans"

	// sqlDateLayout is the canonical stored form of loan dates.
	sqlDateLayout = "2006-01-02"
)

var dialect = goqu.Dialect("sqlite3")

var bookColumns = []any{"id", "title", "author", "genre", "publication_year", "total_copies", "available_copies"}

var memberColumns = []any{"id", "name", "email", goqu.L("COALESCE(phone, '')").As("phone"), "category", "active"}

var loanColumns = []any{"id", "book_id", "member_id", "loan_date", "due_date", "return_date", "status", "fine"}

// Store provides typed access to the three persisted collections. It is the
// single external collaborator of the managers and the loan engine; pass one
// handle into each component at construction.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
}

// OpenStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations. A nil logger disables logging.
func OpenStore(dbPath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("create db dir", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, storeErr("open sqlite", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("store opened", zap.String("path", dbPath))
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency when several CLI sessions share the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return storeErr("enable WAL", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return storeErr("create meta table", err)
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return storeErr("begin migration", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            publication_year INTEGER NOT NULL,
            total_copies INTEGER NOT NULL,
            available_copies INTEGER NOT NULL,
            CHECK (available_copies BETWEEN 0 AND total_copies)
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT,
            category TEXT NOT NULL,
            active BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id),
            member_id INTEGER NOT NULL REFERENCES members(id),
            loan_date DATE NOT NULL,
            due_date DATE NOT NULL,
            return_date DATE,
            status TEXT NOT NULL DEFAULT 'Active',
            fine REAL NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_member_status ON loans(member_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book_status ON loans(book_id, status);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return storeErr("apply migration", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return storeErr("record schema version", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit migration", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// InTx runs fn inside a transaction. Any error aborts the whole transaction,
// so compound mutations are either fully visible or not at all.
func (s *Store) InTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

// InsertBook stores a new book and returns its assigned id.
func (s *Store) InsertBook(b *Book) (int64, error) {
	query, args, err := dialect.Insert(tableBooks).Rows(goqu.Record{
		"title":            b.Title,
		"author":           b.Author,
		"genre":            b.Genre,
		"publication_year": b.PublicationYear,
		"total_copies":     b.TotalCopies,
		"available_copies": b.AvailableCopies,
	}).Prepared(true).ToSQL()
	if err != nil {
		return 0, storeErr("build book insert", err)
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, storeErr("insert book", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("book insert id", err)
	}
	return id, nil
}

// Book fetches a single book.
func (s *Store) Book(id int64) (*Book, error) { return getBook(s.db, id) }

func getBook(q sqlx.Queryer, id int64) (*Book, error) {
	query, args, err := dialect.From(tableBooks).
		Select(bookColumns...).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build book select", err)
	}

	var b Book
	if err := sqlx.Get(q, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("book %d not found", id)
		}
		return nil, storeErr("select book", err)
	}
	return &b, nil
}

// ListBooks returns all books ordered by title ascending.
func (s *Store) ListBooks() ([]*Book, error) {
	return s.selectBooks(dialect.From(tableBooks).
		Select(bookColumns...).
		Order(goqu.I("title").Asc()))
}

// AvailableBooks returns books with at least one available copy, ordered by
// title.
func (s *Store) AvailableBooks() ([]*Book, error) {
	return s.selectBooks(dialect.From(tableBooks).
		Select(bookColumns...).
		Where(goqu.C("available_copies").Gt(0)).
		Order(goqu.I("title").Asc()))
}

// SearchBooks returns books whose column contains term as a case-insensitive
// substring, ordered by title. The column name comes from the fixed
// SearchField set, never from user input.
func (s *Store) SearchBooks(column, term string) ([]*Book, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	return s.selectBooks(dialect.From(tableBooks).
		Select(bookColumns...).
		Where(goqu.L("LOWER(" + column + ")").Like(pattern)).
		Order(goqu.I("title").Asc()))
}

func (s *Store) selectBooks(ds *goqu.SelectDataset) ([]*Book, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build books select", err)
	}
	var books []*Book
	if err := s.db.Select(&books, query, args...); err != nil {
		return nil, storeErr("select books", err)
	}
	return books, nil
}

// adjustAvailability bumps a book's available-copy counter by delta inside
// an open transaction. The guard keeps the counter within [0, total] even if
// another process mutated the row since it was read.
func adjustAvailability(tx *sqlx.Tx, bookID int64, delta int) error {
	query, args, err := dialect.Update(tableBooks).
		Set(goqu.Record{"available_copies": goqu.L("available_copies + ?", delta)}).
		Where(
			goqu.Ex{"id": bookID},
			goqu.L("available_copies + ?", delta).Gte(0),
			goqu.L("available_copies + ?", delta).Lte(goqu.C("total_copies")),
		).
		Prepared(true).ToSQL()
	if err != nil {
		return storeErr("build availability update", err)
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return storeErr("update availability", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("availability rows affected", err)
	}
	if affected == 0 {
		return conflictf("book %d availability would leave the valid range", bookID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// InsertMember stores a new member and returns its assigned id. A duplicate
// email surfaces as a conflict.
func (s *Store) InsertMember(m *Member) (int64, error) {
	record := goqu.Record{
		"name":     m.Name,
		"email":    m.Email,
		"category": m.Category,
		"active":   m.Active,
	}
	if m.Phone != "" {
		record["phone"] = m.Phone
	}

	query, args, err := dialect.Insert(tableMembers).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return 0, storeErr("build member insert", err)
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, conflictf("a member with email %q already exists", m.Email)
		}
		return 0, storeErr("insert member", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("member insert id", err)
	}
	return id, nil
}

// Member fetches a single member.
func (s *Store) Member(id int64) (*Member, error) { return getMember(s.db, id) }

func getMember(q sqlx.Queryer, id int64) (*Member, error) {
	query, args, err := dialect.From(tableMembers).
		Select(memberColumns...).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build member select", err)
	}

	var m Member
	if err := sqlx.Get(q, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("member %d not found", id)
		}
		return nil, storeErr("select member", err)
	}
	return &m, nil
}

// ListMembers returns all members ordered by name.
func (s *Store) ListMembers() ([]*Member, error) {
	return s.selectMembers(dialect.From(tableMembers).
		Select(memberColumns...).
		Order(goqu.I("name").Asc()))
}

// ActiveMembers returns members eligible to borrow, ordered by name.
func (s *Store) ActiveMembers() ([]*Member, error) {
	return s.selectMembers(dialect.From(tableMembers).
		Select(memberColumns...).
		Where(goqu.Ex{"active": true}).
		Order(goqu.I("name").Asc()))
}

func (s *Store) selectMembers(ds *goqu.SelectDataset) ([]*Member, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build members select", err)
	}
	var members []*Member
	if err := s.db.Select(&members, query, args...); err != nil {
		return nil, storeErr("select members", err)
	}
	return members, nil
}

// SetMemberActive flips a member's eligibility flag.
func (s *Store) SetMemberActive(id int64, active bool) error {
	query, args, err := dialect.Update(tableMembers).
		Set(goqu.Record{"active": active}).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return storeErr("build member update", err)
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return storeErr("update member", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("member rows affected", err)
	}
	if affected == 0 {
		return notFoundf("member %d not found", id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

func insertLoan(tx *sqlx.Tx, l *Loan) (int64, error) {
	query, args, err := dialect.Insert(tableLoans).Rows(goqu.Record{
		"book_id":   l.BookID,
		"member_id": l.MemberID,
		"loan_date": l.LoanDate.Format(sqlDateLayout),
		"due_date":  l.DueDate.Format(sqlDateLayout),
		"status":    l.Status,
		"fine":      l.Fine,
	}).Prepared(true).ToSQL()
	if err != nil {
		return 0, storeErr("build loan insert", err)
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, storeErr("insert loan", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("loan insert id", err)
	}
	return id, nil
}

// Loan fetches a single loan.
func (s *Store) Loan(id int64) (*Loan, error) { return getLoan(s.db, id) }

func getLoan(q sqlx.Queryer, id int64) (*Loan, error) {
	query, args, err := dialect.From(tableLoans).
		Select(loanColumns...).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build loan select", err)
	}

	var l Loan
	if err := sqlx.Get(q, &l, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("loan %d not found", id)
		}
		return nil, storeErr("select loan", err)
	}
	return &l, nil
}

// countActiveLoans returns the member's current number of Active loans. The
// count is always recomputed from the loans table, never cached.
func countActiveLoans(q sqlx.Queryer, memberID int64) (int, error) {
	query, args, err := dialect.From(tableLoans).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"member_id": memberID, "status": LoanActive}).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, storeErr("build active-loan count", err)
	}

	var n int
	if err := sqlx.Get(q, &n, query, args...); err != nil {
		return 0, storeErr("count active loans", err)
	}
	return n, nil
}

// hasActiveLoan reports whether the (member, book) pair already has an open
// loan.
func hasActiveLoan(q sqlx.Queryer, memberID, bookID int64) (bool, error) {
	query, args, err := dialect.From(tableLoans).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"member_id": memberID, "book_id": bookID, "status": LoanActive}).
		Prepared(true).ToSQL()
	if err != nil {
		return false, storeErr("build duplicate-loan check", err)
	}

	var n int
	if err := sqlx.Get(q, &n, query, args...); err != nil {
		return false, storeErr("check duplicate loan", err)
	}
	return n > 0, nil
}

// closeLoanRow marks a loan Returned with its return date and fine. The
// status guard makes the terminal transition race-safe: a loan already
// closed by another session is left untouched.
func closeLoanRow(tx *sqlx.Tx, loanID int64, returnDate time.Time, fine float64) error {
	query, args, err := dialect.Update(tableLoans).
		Set(goqu.Record{
			"status":      LoanReturned,
			"return_date": returnDate.Format(sqlDateLayout),
			"fine":        fine,
		}).
		Where(goqu.Ex{"id": loanID, "status": LoanActive}).
		Prepared(true).ToSQL()
	if err != nil {
		return storeErr("build loan close", err)
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return storeErr("close loan", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("loan rows affected", err)
	}
	if affected == 0 {
		return conflictf("loan %d is already returned", loanID)
	}
	return nil
}

// Loans returns loans matching where, newest first.
func (s *Store) Loans(where ...goqu.Expression) ([]*Loan, error) {
	query, args, err := dialect.From(tableLoans).
		Select(loanColumns...).
		Where(where...).
		Order(goqu.I("id").Desc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build loans select", err)
	}

	var loans []*Loan
	if err := s.db.Select(&loans, query, args...); err != nil {
		return nil, storeErr("select loans", err)
	}
	return loans, nil
}

package library

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
)

// Membership manages member registration and listing.
type Membership struct {
	store *Store
}

// NewMembership returns a membership manager backed by store.
func NewMembership(store *Store) *Membership {
	return &Membership{store: store}
}

// MemberSummary is a member annotated with their current number of Active
// loans. The count is recomputed from the loans table on every listing so
// it can never go stale.
type MemberSummary struct {
	Member
	ActiveLoans int `db:"active_loans"`
}

// RegisterMember validates and stores a new member. Email is lowercased
// before the uniqueness check; phone is optional and stored digit-only.
// New members start active.
func (m *Membership) RegisterMember(name, email, phone string, category MemberCategory) (*Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name cannot be empty")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	phone = strings.TrimSpace(phone)
	if phone != "" {
		digits, err := normalizePhone(phone)
		if err != nil {
			return nil, err
		}
		phone = digits
	}

	switch category {
	case CategoryStudent, CategoryTeacher:
	default:
		return nil, validationf("unknown member category %q", category)
	}

	member := &Member{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Category: category,
		Active:   true,
	}
	id, err := m.store.InsertMember(member)
	if err != nil {
		return nil, err
	}
	member.ID = id
	return member, nil
}

// ListMembers returns all members ordered by name, each with their live
// Active-loan count.
func (m *Membership) ListMembers() ([]*MemberSummary, error) {
	query, args, err := dialect.From(tableMembers).
		Select(
			goqu.I("members.id"),
			goqu.I("members.name"),
			goqu.I("members.email"),
			goqu.L("COALESCE(members.phone, '')").As("phone"),
			goqu.I("members.category"),
			goqu.I("members.active"),
			goqu.COUNT(goqu.I("loans.id")).As("active_loans"),
		).
		LeftJoin(goqu.T(tableLoans), goqu.On(
			goqu.I("loans.member_id").Eq(goqu.I("members.id")),
			goqu.I("loans.status").Eq(string(LoanActive)),
		)).
		GroupBy(goqu.I("members.id")).
		Order(goqu.I("members.name").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, storeErr("build member listing", err)
	}

	var summaries []*MemberSummary
	if err := m.store.db.Select(&summaries, query, args...); err != nil {
		return nil, storeErr("list members", err)
	}
	return summaries, nil
}

// ActiveMembers returns members eligible to borrow, ordered by name.
func (m *Membership) ActiveMembers() ([]*Member, error) {
	return m.store.ActiveMembers()
}

// SetActive flips a member's eligibility to borrow. Deactivation does not
// touch the member's open loans; they can still be returned.
func (m *Membership) SetActive(id int64, active bool) error {
	return m.store.SetMemberActive(id, active)
}

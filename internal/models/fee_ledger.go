package models

import (
	"sort"
	"strings"
	"time"
)

// InstallmentStatus represents the payment state of a single installment
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPaid    InstallmentStatus = "paid"
)

// Badge labels shown against an installment in the payments view
const (
	BadgePaid    = "Paid"
	BadgeOverdue = "Overdue"
	BadgePending = "Pending"
)

// Installment is a single entry in a student's fee plan.
// ID is a stable identifier assigned at plan creation; older ledgers may
// predate it, in which case matching falls back to (Description, DueDate).
type Installment struct {
	ID          string            `firestore:"id,omitempty" json:"id,omitempty"`
	Description string            `firestore:"description" json:"description"`
	DueDate     time.Time         `firestore:"dueDate" json:"dueDate"`
	Amount      float64           `firestore:"amount" json:"amount"`
	Status      InstallmentStatus `firestore:"status" json:"status"`

	// Populated only once Status is "paid"
	PaymentDate   *time.Time `firestore:"paymentDate,omitempty" json:"paymentDate,omitempty"`
	AmountPaid    float64    `firestore:"amountPaid,omitempty" json:"amountPaid,omitempty"`
	PaymentMethod string     `firestore:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
}

// IsPaid reports whether this installment has been settled
func (i Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// BadgeAt returns the status badge for the payments view. An unpaid
// installment is overdue only when its due date is strictly before the
// start of "today"; an installment due today is still Pending.
func (i Installment) BadgeAt(now time.Time) string {
	if i.IsPaid() {
		return BadgePaid
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if i.DueDate.Before(startOfToday) {
		return BadgeOverdue
	}
	return BadgePending
}

// InstallmentRef identifies an installment inside a ledger, either by its
// stable ID or by the legacy (description, dueDate) pair.
type InstallmentRef struct {
	ID          string
	Description string
	DueDate     time.Time
}

// Matches reports whether ref points at the given installment. ID wins when
// both sides carry one; otherwise the due date is compared with time.Equal
// so that wall-clock-identical timestamps in different locations still match.
func (ref InstallmentRef) Matches(in Installment) bool {
	if ref.ID != "" && in.ID != "" {
		return ref.ID == in.ID
	}
	return strings.TrimSpace(ref.Description) == strings.TrimSpace(in.Description) &&
		ref.DueDate.Equal(in.DueDate)
}

// FeeLedger is the per-student fee plan document
// (studentFeeDetails/{studentId}). Installments keep insertion order;
// consumers sort by due date before deriving anything date-based.
type FeeLedger struct {
	StudentID      string        `firestore:"-" json:"studentId"`
	Installments   []Installment `firestore:"installments" json:"installments"`
	SelectedPlanID string        `firestore:"selectedPlanId,omitempty" json:"selectedPlanId,omitempty"`
}

// FindInstallment returns the index of the installment matched by ref,
// or -1 when no entry matches.
func (l FeeLedger) FindInstallment(ref InstallmentRef) int {
	for i, in := range l.Installments {
		if ref.Matches(in) {
			return i
		}
	}
	return -1
}

// WithPayment returns a copy of the installments array where only the entry
// at idx has been marked paid with the given payment details. The receiver
// is left untouched.
func (l FeeLedger) WithPayment(idx int, paymentDate time.Time, amountPaid float64, method string) []Installment {
	out := make([]Installment, len(l.Installments))
	copy(out, l.Installments)

	pd := paymentDate
	out[idx].Status = InstallmentStatusPaid
	out[idx].PaymentDate = &pd
	out[idx].AmountPaid = amountPaid
	out[idx].PaymentMethod = method
	return out
}

// TotalDue is the sum of all installment amounts, paid or not — progress is
// measured against the whole plan, not just what has been invoiced.
func (l FeeLedger) TotalDue() float64 {
	var total float64
	for _, in := range l.Installments {
		total += in.Amount
	}
	return total
}

// TotalPaid sums the nominal amount of every paid installment
func (l FeeLedger) TotalPaid() float64 {
	var total float64
	for _, in := range l.Installments {
		if in.IsPaid() {
			total += in.Amount
		}
	}
	return total
}

// PercentagePaid returns TotalPaid/TotalDue as a percentage, and 0 for an
// empty or zero-amount plan.
func (l FeeLedger) PercentagePaid() float64 {
	due := l.TotalDue()
	if due == 0 {
		return 0
	}
	return l.TotalPaid() / due * 100
}

// SortedByDueDate returns the installments ordered ascending by due date.
// The sort is stable: entries sharing a due date keep their original
// array order.
func (l FeeLedger) SortedByDueDate() []Installment {
	out := make([]Installment, len(l.Installments))
	copy(out, l.Installments)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].DueDate.Before(out[b].DueDate)
	})
	return out
}

// NextDue returns the earliest pending installment by due date, or nil when
// every installment is paid (the fully-paid state).
func (l FeeLedger) NextDue() *Installment {
	for _, in := range l.SortedByDueDate() {
		if !in.IsPaid() {
			next := in
			return &next
		}
	}
	return nil
}

// OverdueAt returns every unpaid installment whose due date is strictly
// before the start of the given day, earliest first.
func (l FeeLedger) OverdueAt(now time.Time) []Installment {
	var out []Installment
	for _, in := range l.SortedByDueDate() {
		if in.BadgeAt(now) == BadgeOverdue {
			out = append(out, in)
		}
	}
	return out
}

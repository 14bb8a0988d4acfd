package models

import "time"

// FeeTransaction is one document in the append-only feeTransactions
// collection. Written exactly once per recorded payment and never updated
// or deleted; it is the audit trail independent of the mutable ledger.
type FeeTransaction struct {
	ID          string    `firestore:"-" json:"id"`
	StudentID   string    `firestore:"studentId" json:"studentId"`
	StudentName string    `firestore:"studentName" json:"studentName"`
	// Amount is the amount actually received, as reported by the caller.
	// A partial or over-payment is recorded as-is, not reconciled against
	// the installment's nominal amount.
	Amount        float64   `firestore:"amount" json:"amount"`
	PaymentDate   time.Time `firestore:"paymentDate" json:"paymentDate"`
	PaymentMethod string    `firestore:"paymentMethod" json:"paymentMethod"`
	Description   string    `firestore:"description" json:"description"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolfee_app_echo/internal/models"
)

// Firestore collection names
const (
	colFeeLedgers      = "studentFeeDetails"
	colFeeTransactions = "feeTransactions"
	colFeeStructures   = "feeStructures"
	colStudents        = "students"
)

var (
	// ErrLedgerNotFound means no fee plan has been assigned to the student
	ErrLedgerNotFound = errors.New("fee ledger not found")
	// ErrInstallmentNotFound means the payment referenced an installment
	// that is not part of the student's ledger
	ErrInstallmentNotFound = errors.New("installment not found in ledger")
	// ErrInstallmentAlreadyPaid rejects a second recording against an
	// installment that has already been settled
	ErrInstallmentAlreadyPaid = errors.New("installment is already paid")
	// ErrStudentNotFound means no profile document exists for the uid
	ErrStudentNotFound = errors.New("student not found")
)

// PaymentRecord carries everything needed to record one installment payment
type PaymentRecord struct {
	StudentID     string
	StudentName   string
	Ref           models.InstallmentRef
	PaymentDate   time.Time
	AmountPaid    float64
	PaymentMethod string
}

// FeeStore is the Firestore-backed store for ledgers, transactions, fee
// structures and student profiles.
type FeeStore struct {
	fs *firestore.Client
}

// NewFeeStore creates a FeeStore on top of a Firestore client
func NewFeeStore(fs *firestore.Client) *FeeStore {
	return &FeeStore{fs: fs}
}

// GetLedger loads the fee ledger for a student.
// Returns ErrLedgerNotFound when no plan has been assigned.
func (s *FeeStore) GetLedger(ctx context.Context, studentID string) (*models.FeeLedger, error) {
	snap, err := s.fs.Collection(colFeeLedgers).Doc(studentID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("get ledger %s: %w", studentID, err)
	}

	var ledger models.FeeLedger
	if err := snap.DataTo(&ledger); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", studentID, err)
	}
	ledger.StudentID = studentID
	return &ledger, nil
}

// RecordPayment marks the referenced installment paid and appends one
// FeeTransaction document, both inside a single Firestore transaction.
// The transactional read means two concurrent recordings against the same
// ledger cannot lose each other's update: the second one is retried by the
// SDK against the fresh document and, if it targets the same installment,
// fails with ErrInstallmentAlreadyPaid.
func (s *FeeStore) RecordPayment(ctx context.Context, rec PaymentRecord) (*models.FeeTransaction, error) {
	ledgerRef := s.fs.Collection(colFeeLedgers).Doc(rec.StudentID)
	txnRef := s.fs.Collection(colFeeTransactions).NewDoc()

	txn := models.FeeTransaction{
		ID:            txnRef.ID,
		StudentID:     rec.StudentID,
		StudentName:   rec.StudentName,
		Amount:        rec.AmountPaid,
		PaymentDate:   rec.PaymentDate,
		PaymentMethod: rec.PaymentMethod,
		Description:   rec.Ref.Description,
		CreatedAt:     time.Now(),
	}

	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ledgerRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrLedgerNotFound
			}
			return err
		}

		var ledger models.FeeLedger
		if err := snap.DataTo(&ledger); err != nil {
			return err
		}

		idx := ledger.FindInstallment(rec.Ref)
		if idx < 0 {
			return ErrInstallmentNotFound
		}
		matched := ledger.Installments[idx]
		if matched.IsPaid() {
			return ErrInstallmentAlreadyPaid
		}
		if txn.Description == "" {
			txn.Description = matched.Description
		}

		updated := ledger.WithPayment(idx, rec.PaymentDate, rec.AmountPaid, rec.PaymentMethod)
		if err := tx.Update(ledgerRef, []firestore.Update{
			{Path: "installments", Value: updated},
		}); err != nil {
			return err
		}
		return tx.Create(txnRef, txn)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetFeeStructure loads the shared plan catalog for a batch. A missing
// structure is not an error; callers degrade to the fallback plan name.
func (s *FeeStore) GetFeeStructure(ctx context.Context, batchID string) (*models.FeeStructure, error) {
	if batchID == "" {
		return nil, nil
	}
	snap, err := s.fs.Collection(colFeeStructures).Doc(batchID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get fee structure %s: %w", batchID, err)
	}

	var structure models.FeeStructure
	if err := snap.DataTo(&structure); err != nil {
		return nil, fmt.Errorf("decode fee structure %s: %w", batchID, err)
	}
	structure.BatchID = batchID
	return &structure, nil
}

// GetStudent loads a student profile by Firebase UID
func (s *FeeStore) GetStudent(ctx context.Context, uid string) (*models.Student, error) {
	snap, err := s.fs.Collection(colStudents).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student %s: %w", uid, err)
	}

	var student models.Student
	if err := snap.DataTo(&student); err != nil {
		return nil, fmt.Errorf("decode student %s: %w", uid, err)
	}
	student.UID = uid
	return &student, nil
}

// ListTransactions returns a student's payment audit trail, newest first
func (s *FeeStore) ListTransactions(ctx context.Context, studentID string, limit int) ([]models.FeeTransaction, error) {
	q := s.fs.Collection(colFeeTransactions).
		Where("studentId", "==", studentID).
		OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []models.FeeTransaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list transactions %s: %w", studentID, err)
		}
		var txn models.FeeTransaction
		if err := snap.DataTo(&txn); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", snap.Ref.ID, err)
		}
		txn.ID = snap.Ref.ID
		out = append(out, txn)
	}
	return out, nil
}

// ListLedgers streams every fee ledger; used by the overdue reminder task
func (s *FeeStore) ListLedgers(ctx context.Context) ([]models.FeeLedger, error) {
	iter := s.fs.Collection(colFeeLedgers).Documents(ctx)
	defer iter.Stop()

	var out []models.FeeLedger
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list ledgers: %w", err)
		}
		var ledger models.FeeLedger
		if err := snap.DataTo(&ledger); err != nil {
			return nil, fmt.Errorf("decode ledger %s: %w", snap.Ref.ID, err)
		}
		ledger.StudentID = snap.Ref.ID
		out = append(out, ledger)
	}
	return out, nil
}

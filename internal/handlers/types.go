package handlers

import (
	"context"
	"time"

	"schoolfee_app_echo/internal/models"
	"schoolfee_app_echo/internal/services"
)

// FeeStore is what the fee handlers need from the document store. The
// Firestore implementation lives in services; tests substitute an in-memory
// one.
type FeeStore interface {
	GetLedger(ctx context.Context, studentID string) (*models.FeeLedger, error)
	RecordPayment(ctx context.Context, rec services.PaymentRecord) (*models.FeeTransaction, error)
	GetFeeStructure(ctx context.Context, batchID string) (*models.FeeStructure, error)
	GetStudent(ctx context.Context, uid string) (*models.Student, error)
	ListTransactions(ctx context.Context, studentID string, limit int) ([]models.FeeTransaction, error)
}

// TaskQueue enqueues outbox tasks for the worker
type TaskQueue interface {
	Enqueue(task *models.ScheduledTask) error
}

// CollectFeeRequest is the payment-recording payload
type CollectFeeRequest struct {
	Student     StudentPayload     `json:"student" validate:"required"`
	Installment InstallmentPayload `json:"installment" validate:"required"`
	PaymentData PaymentDataPayload `json:"paymentData" validate:"required"`
}

// StudentPayload identifies the student being paid for
type StudentPayload struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	ParentEmail string `json:"parentEmail" validate:"omitempty,email"`
}

// InstallmentPayload references an installment either by its stable id or
// by the legacy (description, dueDate) pair.
type InstallmentPayload struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Amount      float64   `json:"amount"`
}

// PaymentDataPayload carries the details of the received payment
type PaymentDataPayload struct {
	PaymentDate   time.Time `json:"paymentDate" validate:"required"`
	AmountPaid    float64   `json:"amountPaid" validate:"required,gt=0"`
	PaymentMethod string    `json:"paymentMethod" validate:"required"`
}

// ChangePasswordRequest is the payload for the password change route
type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// MessageResponse is the success envelope
type MessageResponse struct {
	Message string `json:"message"`
}

// InstallmentView is one row of the payments history, newest due date first
type InstallmentView struct {
	models.Installment
	Badge string `json:"badge"`
}

// PaymentInstructions is the static call-to-action rendered next to the
// next due installment.
type PaymentInstructions struct {
	UPIID     string `json:"upiId,omitempty"`
	QRCodeURL string `json:"qrCodeUrl,omitempty"`
}

// FeeSummaryResponse is the payments-view payload for one student
type FeeSummaryResponse struct {
	PlanAssigned        bool                 `json:"planAssigned"`
	Message             string               `json:"message,omitempty"`
	PlanName            string               `json:"planName,omitempty"`
	TotalPaid           float64              `json:"totalPaid"`
	TotalDue            float64              `json:"totalDue"`
	PercentagePaid      float64              `json:"percentagePaid"`
	NextDue             *models.Installment  `json:"nextDue,omitempty"`
	PaymentInstructions *PaymentInstructions `json:"paymentInstructions,omitempty"`
	Installments        []InstallmentView    `json:"installments"`
}

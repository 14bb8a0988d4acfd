package tasks

import (
	"context"
	"fmt"
	"time"

	"schoolfee_app_echo/internal/models"
	"schoolfee_app_echo/internal/services"
)

// SendReceiptEmailArgs is the outbox payload written by the fee collection
// endpoint. It is self-contained so the worker never has to read the ledger
// back to deliver a receipt.
type SendReceiptEmailArgs struct {
	To            string  `json:"to"`
	StudentName   string  `json:"student_name"`
	Description   string  `json:"description"`
	AmountPaid    float64 `json:"amount_paid"`
	PaymentDate   string  `json:"payment_date"` // RFC 3339
	PaymentMethod string  `json:"payment_method"`
	ReceiptRef    string  `json:"receipt_ref"`
}

// SendReceiptEmailTaskDef delivers the fee receipt email for one recorded
// payment.
type SendReceiptEmailTaskDef struct{}

// SendReceiptEmailTask is the singleton instance
var SendReceiptEmailTask = &SendReceiptEmailTaskDef{}

func (t *SendReceiptEmailTaskDef) TaskID() string {
	return "send_receipt_email"
}

// CreateTask builds a one-time outbox entry due immediately
func (t *SendReceiptEmailTaskDef) CreateTask(args SendReceiptEmailArgs) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
}

// HandleExecution renders and sends the receipt
func (t *SendReceiptEmailTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SendReceiptEmailArgs
	if err := decodeArgs(task.Arguments, &args); err != nil {
		return nil, err
	}

	if args.To == "" {
		return nil, fmt.Errorf("receipt task has no recipient")
	}

	paymentDate, err := time.Parse(time.RFC3339, args.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("invalid payment_date %q: %w", args.PaymentDate, err)
	}

	html, err := services.RenderReceiptEmail(services.ReceiptEmailData{
		StudentName:   args.StudentName,
		Description:   args.Description,
		AmountPaid:    args.AmountPaid,
		PaymentDate:   paymentDate,
		PaymentMethod: args.PaymentMethod,
		ReceiptRef:    args.ReceiptRef,
		SchoolName:    schoolName(),
	})
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Fee Receipt - %s", args.Description)
	if err := deps.Email.SendHTML([]string{args.To}, subject, html); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"recipient":   args.To,
		"receipt_ref": args.ReceiptRef,
	}, nil
}

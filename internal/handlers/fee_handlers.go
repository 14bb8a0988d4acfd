package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"schoolfee_app_echo/internal/models"
	"schoolfee_app_echo/internal/services"
	"schoolfee_app_echo/internal/tasks"
)

var validate = validator.New()

// FeeHandler serves the fee collection endpoint and the payments view data
type FeeHandler struct {
	store FeeStore
	cache *services.RedisCache
	queue TaskQueue
}

// NewFeeHandler creates a FeeHandler. cache and queue may be nil; locking
// and receipt emails are then skipped, everything else still works.
func NewFeeHandler(store FeeStore, cache *services.RedisCache, queue TaskQueue) *FeeHandler {
	return &FeeHandler{store: store, cache: cache, queue: queue}
}

// CollectFee records an installment payment: marks the installment paid and
// appends a transaction document in one atomic write, then enqueues the
// receipt email. The receipt is strictly best-effort; only the financial
// write decides the response.
func (h *FeeHandler) CollectFee(c echo.Context) error {
	var req CollectFeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields: "+err.Error())
	}

	ref := models.InstallmentRef{
		ID:          req.Installment.ID,
		Description: req.Installment.Description,
		DueDate:     req.Installment.DueDate,
	}
	if ref.ID == "" && (ref.Description == "" || ref.DueDate.IsZero()) {
		return echo.NewHTTPError(http.StatusBadRequest, "installment must carry an id or a description with dueDate")
	}

	ctx := c.Request().Context()

	// Guard against a double-submit racing itself past the transaction
	if h.cache != nil {
		lockKey := collectFeeLockKey(req.Student.ID, ref)
		ok, err := h.cache.AcquireLock(ctx, lockKey, 30*time.Second)
		if err != nil {
			log.Printf("collect-fee: lock error for %s: %v", lockKey, err)
		} else if !ok {
			return echo.NewHTTPError(http.StatusConflict, "this payment is already being processed")
		} else {
			defer h.cache.ReleaseLock(ctx, lockKey)
		}
	}

	txn, err := h.store.RecordPayment(ctx, services.PaymentRecord{
		StudentID:     req.Student.ID,
		StudentName:   req.Student.Name,
		Ref:           ref,
		PaymentDate:   req.PaymentData.PaymentDate,
		AmountPaid:    req.PaymentData.AmountPaid,
		PaymentMethod: req.PaymentData.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLedgerNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "no fee plan found for this student")
		case errors.Is(err, services.ErrInstallmentNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "installment not found in the student's fee plan")
		case errors.Is(err, services.ErrInstallmentAlreadyPaid):
			return echo.NewHTTPError(http.StatusConflict, "this installment is already paid")
		}
		return fmt.Errorf("record payment for %s: %w", req.Student.ID, err)
	}

	h.enqueueReceipt(req, txn)

	return c.JSON(http.StatusOK, MessageResponse{Message: "payment recorded successfully"})
}

// enqueueReceipt places the receipt email in the outbox. Failures are
// logged and never surfaced; the payment is already committed.
func (h *FeeHandler) enqueueReceipt(req CollectFeeRequest, txn *models.FeeTransaction) {
	if h.queue == nil || req.Student.ParentEmail == "" {
		return
	}

	task, err := tasks.SendReceiptEmailTask.CreateTask(tasks.SendReceiptEmailArgs{
		To:            req.Student.ParentEmail,
		StudentName:   req.Student.Name,
		Description:   txn.Description,
		AmountPaid:    txn.Amount,
		PaymentDate:   txn.PaymentDate.Format(time.RFC3339),
		PaymentMethod: txn.PaymentMethod,
		ReceiptRef:    txn.ID,
	})
	if err != nil {
		log.Printf("collect-fee: failed to build receipt task: %v", err)
		return
	}
	if err := h.queue.Enqueue(task); err != nil {
		log.Printf("collect-fee: failed to enqueue receipt for %s: %v", req.Student.ID, err)
	}
}

// FeeSummary returns the payments-view data for one student: resolved plan
// name, totals, next due installment with static payment instructions, and
// the full history with status badges.
func (h *FeeHandler) FeeSummary(c echo.Context) error {
	studentID := c.Param("id")
	ctx := c.Request().Context()

	ledger, err := h.store.GetLedger(ctx, studentID)
	if err != nil {
		if errors.Is(err, services.ErrLedgerNotFound) {
			// Not an error state: the admin simply hasn't assigned a plan yet
			return c.JSON(http.StatusOK, FeeSummaryResponse{
				PlanAssigned: false,
				Message:      "No Payment Plan Assigned",
				Installments: []InstallmentView{},
			})
		}
		return fmt.Errorf("fee summary for %s: %w", studentID, err)
	}

	resp := FeeSummaryResponse{
		PlanAssigned:   true,
		PlanName:       h.resolvePlanName(c, studentID, ledger.SelectedPlanID),
		TotalPaid:      ledger.TotalPaid(),
		TotalDue:       ledger.TotalDue(),
		PercentagePaid: ledger.PercentagePaid(),
		NextDue:        ledger.NextDue(),
	}

	if resp.NextDue != nil {
		resp.PaymentInstructions = &PaymentInstructions{
			UPIID:     os.Getenv("PAYMENT_UPI_ID"),
			QRCodeURL: os.Getenv("PAYMENT_QR_URL"),
		}
	}

	// History renders most recent due date first
	sorted := ledger.SortedByDueDate()
	now := time.Now()
	resp.Installments = make([]InstallmentView, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		resp.Installments = append(resp.Installments, InstallmentView{
			Installment: sorted[i],
			Badge:       sorted[i].BadgeAt(now),
		})
	}

	return c.JSON(http.StatusOK, resp)
}

// resolvePlanName looks up the student's batch fee structure to turn
// selectedPlanId into a display name. Every lookup failure degrades to the
// fallback label; the summary never fails because of the plan catalog.
func (h *FeeHandler) resolvePlanName(c echo.Context, studentID, selectedPlanID string) string {
	if selectedPlanID == "" {
		return models.FallbackPlanName
	}
	ctx := c.Request().Context()

	student, err := h.store.GetStudent(ctx, studentID)
	if err != nil || student.BatchID == "" {
		return models.FallbackPlanName
	}

	fetch := func() (*models.FeeStructure, error) {
		return h.store.GetFeeStructure(ctx, student.BatchID)
	}

	var structure *models.FeeStructure
	if h.cache != nil {
		structure, err = services.GetOrSet(h.cache, ctx, "feeStructure:"+student.BatchID, 5*time.Minute, fetch)
	} else {
		structure, err = fetch()
	}
	if err != nil {
		log.Printf("fee-summary: failed to load fee structure for batch %s: %v", student.BatchID, err)
		return models.FallbackPlanName
	}
	return structure.PlanName(selectedPlanID)
}

// ListTransactions returns the append-only payment audit trail, newest first
func (h *FeeHandler) ListTransactions(c echo.Context) error {
	studentID := c.Param("id")

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	txns, err := h.store.ListTransactions(c.Request().Context(), studentID, limit)
	if err != nil {
		return fmt.Errorf("list transactions for %s: %w", studentID, err)
	}
	if txns == nil {
		txns = []models.FeeTransaction{}
	}
	return c.JSON(http.StatusOK, txns)
}

func collectFeeLockKey(studentID string, ref models.InstallmentRef) string {
	if ref.ID != "" {
		return "collectfee:" + studentID + ":" + ref.ID
	}
	return "collectfee:" + studentID + ":" + ref.Description + ":" + strconv.FormatInt(ref.DueDate.Unix(), 10)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"schoolfee_app_echo/internal/models"
	"schoolfee_app_echo/internal/services"
)

// fakeFeeStore keeps ledgers in memory and applies the same matching and
// mark-paid semantics as the Firestore store.
type fakeFeeStore struct {
	ledgers      map[string]*models.FeeLedger
	students     map[string]*models.Student
	structures   map[string]*models.FeeStructure
	transactions []models.FeeTransaction
}

func newFakeFeeStore() *fakeFeeStore {
	return &fakeFeeStore{
		ledgers:    make(map[string]*models.FeeLedger),
		students:   make(map[string]*models.Student),
		structures: make(map[string]*models.FeeStructure),
	}
}

func (f *fakeFeeStore) GetLedger(_ context.Context, studentID string) (*models.FeeLedger, error) {
	ledger, ok := f.ledgers[studentID]
	if !ok {
		return nil, services.ErrLedgerNotFound
	}
	cp := *ledger
	return &cp, nil
}

func (f *fakeFeeStore) RecordPayment(_ context.Context, rec services.PaymentRecord) (*models.FeeTransaction, error) {
	ledger, ok := f.ledgers[rec.StudentID]
	if !ok {
		return nil, services.ErrLedgerNotFound
	}
	idx := ledger.FindInstallment(rec.Ref)
	if idx < 0 {
		return nil, services.ErrInstallmentNotFound
	}
	if ledger.Installments[idx].IsPaid() {
		return nil, services.ErrInstallmentAlreadyPaid
	}
	ledger.Installments = ledger.WithPayment(idx, rec.PaymentDate, rec.AmountPaid, rec.PaymentMethod)

	txn := models.FeeTransaction{
		ID:            "txn-1",
		StudentID:     rec.StudentID,
		StudentName:   rec.StudentName,
		Amount:        rec.AmountPaid,
		PaymentDate:   rec.PaymentDate,
		PaymentMethod: rec.PaymentMethod,
		Description:   ledger.Installments[idx].Description,
		CreatedAt:     time.Now(),
	}
	f.transactions = append(f.transactions, txn)
	return &txn, nil
}

func (f *fakeFeeStore) GetFeeStructure(_ context.Context, batchID string) (*models.FeeStructure, error) {
	return f.structures[batchID], nil
}

func (f *fakeFeeStore) GetStudent(_ context.Context, uid string) (*models.Student, error) {
	student, ok := f.students[uid]
	if !ok {
		return nil, services.ErrStudentNotFound
	}
	return student, nil
}

func (f *fakeFeeStore) ListTransactions(_ context.Context, studentID string, _ int) ([]models.FeeTransaction, error) {
	var out []models.FeeTransaction
	for i := len(f.transactions) - 1; i >= 0; i-- {
		if f.transactions[i].StudentID == studentID {
			out = append(out, f.transactions[i])
		}
	}
	return out, nil
}

type fakeQueue struct {
	enqueued []*models.ScheduledTask
}

func (q *fakeQueue) Enqueue(task *models.ScheduledTask) error {
	q.enqueued = append(q.enqueued, task)
	return nil
}

func postJSON(t *testing.T, handler echo.HandlerFunc, target, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, handler(c)
}

func getWithParam(t *testing.T, handler echo.HandlerFunc, target, param string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(param)
	return rec, handler(c)
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

const collectFeeBody = `{
	"student": {"id": "student-1", "name": "Asha Rao", "parentEmail": "parent@example.com"},
	"installment": {"description": "Term 1", "dueDate": "2025-04-01T00:00:00Z", "amount": 5000},
	"paymentData": {"paymentDate": "2025-03-28T00:00:00Z", "amountPaid": 5000, "paymentMethod": "UPI"}
}`

func seedLedger(store *fakeFeeStore) {
	store.ledgers["student-1"] = &models.FeeLedger{
		StudentID: "student-1",
		Installments: []models.Installment{{
			Description: "Term 1",
			DueDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Amount:      5000,
			Status:      models.InstallmentStatusPending,
		}},
	}
}

func TestCollectFeeRecordsPayment(t *testing.T) {
	store := newFakeFeeStore()
	seedLedger(store)
	queue := &fakeQueue{}
	h := NewFeeHandler(store, nil, queue)

	rec, err := postJSON(t, h.CollectFee, "/api/collect-fee", collectFeeBody)
	if err != nil {
		t.Fatalf("CollectFee returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	in := store.ledgers["student-1"].Installments[0]
	if in.Status != models.InstallmentStatusPaid {
		t.Errorf("installment status = %q; want paid", in.Status)
	}
	if in.AmountPaid != 5000 || in.PaymentMethod != "UPI" {
		t.Errorf("payment fields = %+v", in)
	}

	if len(store.transactions) != 1 {
		t.Fatalf("transactions created = %d; want exactly 1", len(store.transactions))
	}
	if store.transactions[0].Amount != 5000 {
		t.Errorf("transaction amount = %v; want 5000", store.transactions[0].Amount)
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("receipt tasks enqueued = %d; want 1", len(queue.enqueued))
	}
	if queue.enqueued[0].TaskName != "send_receipt_email" {
		t.Errorf("enqueued task = %q; want send_receipt_email", queue.enqueued[0].TaskName)
	}
}

func TestCollectFeeRecordsAmountPaidAsIs(t *testing.T) {
	// A partial payment is logged with the received amount, not reconciled
	// against the installment's nominal amount
	store := newFakeFeeStore()
	seedLedger(store)
	h := NewFeeHandler(store, nil, nil)

	body := strings.Replace(collectFeeBody, `"amountPaid": 5000`, `"amountPaid": 2500`, 1)
	rec, err := postJSON(t, h.CollectFee, "/api/collect-fee", body)
	if err != nil || rec.Code != http.StatusOK {
		t.Fatalf("CollectFee failed: err=%v code=%d", err, rec.Code)
	}
	if store.transactions[0].Amount != 2500 {
		t.Errorf("transaction amount = %v; want 2500 (as received)", store.transactions[0].Amount)
	}
}

func TestCollectFeeValidation(t *testing.T) {
	store := newFakeFeeStore()
	seedLedger(store)
	h := NewFeeHandler(store, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing student id", strings.Replace(collectFeeBody, `"id": "student-1", `, ``, 1)},
		{"missing payment method", strings.Replace(collectFeeBody, `, "paymentMethod": "UPI"`, ``, 1)},
		{"installment without id or pair", strings.Replace(collectFeeBody, `"description": "Term 1", `, ``, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := postJSON(t, h.CollectFee, "/api/collect-fee", tt.body)
			if code := httpErrorCode(t, err); code != http.StatusBadRequest {
				t.Errorf("status = %d; want 400", code)
			}
		})
	}

	if len(store.transactions) != 0 {
		t.Errorf("rejected requests must not create transactions, got %d", len(store.transactions))
	}
}

func TestCollectFeeLedgerNotFound(t *testing.T) {
	store := newFakeFeeStore()
	h := NewFeeHandler(store, nil, nil)

	_, err := postJSON(t, h.CollectFee, "/api/collect-fee", collectFeeBody)
	if code := httpErrorCode(t, err); code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", code)
	}
	if len(store.transactions) != 0 {
		t.Errorf("no transaction may be created when the ledger is absent, got %d", len(store.transactions))
	}
}

func TestCollectFeeInstallmentNotFound(t *testing.T) {
	store := newFakeFeeStore()
	seedLedger(store)
	h := NewFeeHandler(store, nil, nil)

	body := strings.Replace(collectFeeBody, `"Term 1"`, `"Term 9"`, 1)
	_, err := postJSON(t, h.CollectFee, "/api/collect-fee", body)
	if code := httpErrorCode(t, err); code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", code)
	}
}

func TestCollectFeeAlreadyPaid(t *testing.T) {
	store := newFakeFeeStore()
	seedLedger(store)
	h := NewFeeHandler(store, nil, nil)

	if rec, err := postJSON(t, h.CollectFee, "/api/collect-fee", collectFeeBody); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("first recording failed: err=%v", err)
	}

	_, err := postJSON(t, h.CollectFee, "/api/collect-fee", collectFeeBody)
	if code := httpErrorCode(t, err); code != http.StatusConflict {
		t.Errorf("replay status = %d; want 409", code)
	}
	if len(store.transactions) != 1 {
		t.Errorf("replay must not append a second transaction, got %d", len(store.transactions))
	}
}

func TestCollectFeeNoReceiptWithoutParentEmail(t *testing.T) {
	store := newFakeFeeStore()
	seedLedger(store)
	queue := &fakeQueue{}
	h := NewFeeHandler(store, nil, queue)

	body := strings.Replace(collectFeeBody, `, "parentEmail": "parent@example.com"`, ``, 1)
	rec, err := postJSON(t, h.CollectFee, "/api/collect-fee", body)
	if err != nil || rec.Code != http.StatusOK {
		t.Fatalf("CollectFee failed: err=%v code=%d", err, rec.Code)
	}
	if len(queue.enqueued) != 0 {
		t.Errorf("no receipt should be enqueued without a parent email, got %d", len(queue.enqueued))
	}
}

func TestFeeSummaryTotals(t *testing.T) {
	store := newFakeFeeStore()
	store.ledgers["student-1"] = &models.FeeLedger{
		StudentID: "student-1",
		Installments: []models.Installment{
			{Description: "Term 1", DueDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Amount: 3000, Status: models.InstallmentStatusPaid},
			{Description: "Term 2", DueDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), Amount: 7000, Status: models.InstallmentStatusPending},
		},
	}
	h := NewFeeHandler(store, nil, nil)

	rec, err := getWithParam(t, h.FeeSummary, "/api/students/student-1/fee-summary", "student-1")
	if err != nil {
		t.Fatalf("FeeSummary returned error: %v", err)
	}

	var resp FeeSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}

	if !resp.PlanAssigned {
		t.Error("planAssigned = false; want true")
	}
	if resp.TotalPaid != 3000 || resp.TotalDue != 10000 {
		t.Errorf("totals = paid %v / due %v; want 3000 / 10000", resp.TotalPaid, resp.TotalDue)
	}
	if resp.PercentagePaid != 30 {
		t.Errorf("percentagePaid = %v; want 30", resp.PercentagePaid)
	}
	if resp.NextDue == nil || resp.NextDue.Description != "Term 2" {
		t.Errorf("nextDue = %+v; want Term 2", resp.NextDue)
	}
	if len(resp.Installments) != 2 || resp.Installments[0].Description != "Term 2" {
		t.Errorf("history must be sorted most recent due date first, got %+v", resp.Installments)
	}
}

func TestFeeSummaryNoPlanAssigned(t *testing.T) {
	store := newFakeFeeStore()
	h := NewFeeHandler(store, nil, nil)

	rec, err := getWithParam(t, h.FeeSummary, "/api/students/ghost/fee-summary", "ghost")
	if err != nil {
		t.Fatalf("FeeSummary returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 (absent ledger is an empty state, not an error)", rec.Code)
	}

	var resp FeeSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.PlanAssigned {
		t.Error("planAssigned = true; want false")
	}
	if resp.Message != "No Payment Plan Assigned" {
		t.Errorf("message = %q; want the explicit empty-state text", resp.Message)
	}
}

func TestFeeSummaryBadges(t *testing.T) {
	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	store := newFakeFeeStore()
	store.ledgers["student-1"] = &models.FeeLedger{
		StudentID: "student-1",
		Installments: []models.Installment{
			{Description: "Yesterday", DueDate: startOfToday.AddDate(0, 0, -1), Amount: 100, Status: models.InstallmentStatusPending},
			{Description: "Today", DueDate: startOfToday, Amount: 100, Status: models.InstallmentStatusPending},
		},
	}
	h := NewFeeHandler(store, nil, nil)

	rec, err := getWithParam(t, h.FeeSummary, "/api/students/student-1/fee-summary", "student-1")
	if err != nil {
		t.Fatalf("FeeSummary returned error: %v", err)
	}

	var resp FeeSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}

	badges := make(map[string]string)
	for _, in := range resp.Installments {
		badges[in.Description] = in.Badge
	}
	if badges["Yesterday"] != models.BadgeOverdue {
		t.Errorf("badge for yesterday = %q; want Overdue", badges["Yesterday"])
	}
	if badges["Today"] != models.BadgePending {
		t.Errorf("badge for today = %q; want Pending (today does not count as overdue)", badges["Today"])
	}
}

func TestFeeSummaryPlanName(t *testing.T) {
	store := newFakeFeeStore()
	store.ledgers["student-1"] = &models.FeeLedger{
		StudentID:      "student-1",
		SelectedPlanID: "plan-a",
		Installments:   []models.Installment{},
	}
	store.students["student-1"] = &models.Student{UID: "student-1", BatchID: "batch-2025"}
	store.structures["batch-2025"] = &models.FeeStructure{
		BatchID: "batch-2025",
		Plans:   []models.FeePlan{{ID: "plan-a", Name: "Annual Plan"}},
	}
	h := NewFeeHandler(store, nil, nil)

	rec, err := getWithParam(t, h.FeeSummary, "/api/students/student-1/fee-summary", "student-1")
	if err != nil {
		t.Fatalf("FeeSummary returned error: %v", err)
	}
	var resp FeeSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.PlanName != "Annual Plan" {
		t.Errorf("planName = %q; want Annual Plan", resp.PlanName)
	}

	// Fee structure missing: feature degrades to the fallback label
	delete(store.structures, "batch-2025")
	rec, err = getWithParam(t, h.FeeSummary, "/api/students/student-1/fee-summary", "student-1")
	if err != nil {
		t.Fatalf("FeeSummary returned error: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.PlanName != models.FallbackPlanName {
		t.Errorf("planName without structure = %q; want %q", resp.PlanName, models.FallbackPlanName)
	}
}

func TestListTransactions(t *testing.T) {
	store := newFakeFeeStore()
	seedLedger(store)
	h := NewFeeHandler(store, nil, nil)

	if _, err := postJSON(t, h.CollectFee, "/api/collect-fee", collectFeeBody); err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}

	rec, err := getWithParam(t, h.ListTransactions, "/api/students/student-1/transactions", "student-1")
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}

	var txns []models.FeeTransaction
	if err := json.Unmarshal(rec.Body.Bytes(), &txns); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(txns) != 1 || txns[0].Amount != 5000 {
		t.Errorf("transactions = %+v; want the single recorded payment", txns)
	}
}

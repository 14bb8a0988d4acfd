package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// ReceiptEmailData feeds the fee receipt template
type ReceiptEmailData struct {
	StudentName   string
	Description   string
	AmountPaid    float64
	PaymentDate   time.Time
	PaymentMethod string
	ReceiptRef    string
	SchoolName    string
}

// ReminderEmailData feeds the overdue reminder template
type ReminderEmailData struct {
	StudentName string
	Items       []ReminderItem
	TotalDue    float64
	SchoolName  string
	UPIID       string
}

// ReminderItem is one overdue installment line in a reminder email
type ReminderItem struct {
	Description string
	DueDate     time.Time
	Amount      float64
}

var emailFuncs = template.FuncMap{
	"rupees": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
	"date":   func(t time.Time) string { return t.Format("2 Jan 2006") },
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(emailFuncs).Parse(`
<div style="font-family:Arial,sans-serif;max-width:560px;margin:0 auto">
  <h2 style="color:#1a3c6e">Payment Receipt</h2>
  <p>Dear Parent/Guardian of {{.StudentName}},</p>
  <p>We have received the following fee payment. Thank you.</p>
  <table style="border-collapse:collapse;width:100%" border="1" cellpadding="8">
    <tr><td>Receipt No.</td><td>{{.ReceiptRef}}</td></tr>
    <tr><td>Installment</td><td>{{.Description}}</td></tr>
    <tr><td>Amount Paid</td><td><b>{{rupees .AmountPaid}}</b></td></tr>
    <tr><td>Payment Date</td><td>{{date .PaymentDate}}</td></tr>
    <tr><td>Payment Method</td><td>{{.PaymentMethod}}</td></tr>
  </table>
  <p style="color:#666;font-size:12px">This is an automated receipt from {{.SchoolName}}. Please retain it for your records.</p>
</div>`))

var reminderTmpl = template.Must(template.New("reminder").Funcs(emailFuncs).Parse(`
<div style="font-family:Arial,sans-serif;max-width:560px;margin:0 auto">
  <h2 style="color:#8a1a1a">Fee Payment Reminder</h2>
  <p>Dear Parent/Guardian of {{.StudentName}},</p>
  <p>The following fee installment{{if gt (len .Items) 1}}s are{{else}} is{{end}} overdue:</p>
  <table style="border-collapse:collapse;width:100%" border="1" cellpadding="8">
    <tr><th>Installment</th><th>Due Date</th><th>Amount</th></tr>
    {{range .Items}}<tr><td>{{.Description}}</td><td>{{date .DueDate}}</td><td>{{rupees .Amount}}</td></tr>
    {{end}}
  </table>
  <p>Total outstanding: <b>{{rupees .TotalDue}}</b></p>
  {{if .UPIID}}<p>You can pay via UPI to <b>{{.UPIID}}</b>, or at the school office.</p>{{end}}
  <p style="color:#666;font-size:12px">If you have already paid, please disregard this reminder. — {{.SchoolName}}</p>
</div>`))

// RenderReceiptEmail renders the HTML body for a fee receipt
func RenderReceiptEmail(data ReceiptEmailData) (string, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render receipt email: %w", err)
	}
	return buf.String(), nil
}

// RenderReminderEmail renders the HTML body for an overdue reminder
func RenderReminderEmail(data ReminderEmailData) (string, error) {
	var buf bytes.Buffer
	if err := reminderTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reminder email: %w", err)
	}
	return buf.String(), nil
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"schoolfee_app_echo/internal/models"
	"schoolfee_app_echo/internal/services"
)

// OverdueReminderTaskDef scans every fee ledger and emails the parents of
// students who have overdue installments. Scheduled as a recurring task
// (weekly by default) via cmd/schedule_task.
type OverdueReminderTaskDef struct{}

// OverdueReminderTask is the singleton instance
var OverdueReminderTask = &OverdueReminderTaskDef{}

func (t *OverdueReminderTaskDef) TaskID() string {
	return "overdue_reminder"
}

// CreateTask builds the recurring reminder task
func (t *OverdueReminderTaskDef) CreateTask(due time.Time, rruleStr string) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, due, &rruleStr, models.ScheduledTaskTypeRecurring, 3)
}

// HandleExecution walks all ledgers and sends one reminder per student with
// overdue installments. Per-student failures are counted, not fatal; the
// task fails only when nothing could be delivered at all.
func (t *OverdueReminderTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	ledgers, err := deps.Store.ListLedgers(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sent := 0
	skipped := 0
	failed := 0

	for _, ledger := range ledgers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		overdue := ledger.OverdueAt(now)
		if len(overdue) == 0 {
			continue
		}

		student, err := deps.Store.GetStudent(ctx, ledger.StudentID)
		if err != nil {
			if errors.Is(err, services.ErrStudentNotFound) {
				log.Printf("overdue_reminder: ledger %s has no student profile", ledger.StudentID)
				skipped++
				continue
			}
			failed++
			continue
		}
		if student.ParentEmail == "" {
			skipped++
			continue
		}

		items := make([]services.ReminderItem, 0, len(overdue))
		var total float64
		for _, in := range overdue {
			items = append(items, services.ReminderItem{
				Description: in.Description,
				DueDate:     in.DueDate,
				Amount:      in.Amount,
			})
			total += in.Amount
		}

		html, err := services.RenderReminderEmail(services.ReminderEmailData{
			StudentName: student.Name,
			Items:       items,
			TotalDue:    total,
			SchoolName:  schoolName(),
			UPIID:       os.Getenv("PAYMENT_UPI_ID"),
		})
		if err != nil {
			failed++
			continue
		}

		if err := deps.Email.SendHTML([]string{student.ParentEmail}, "Fee Payment Reminder", html); err != nil {
			log.Printf("overdue_reminder: failed to send to %s: %v", student.ParentEmail, err)
			failed++
			continue
		}
		sent++
	}

	result := map[string]interface{}{
		"ledgers": len(ledgers),
		"sent":    sent,
		"skipped": skipped,
		"failed":  failed,
	}
	if failed > 0 && sent == 0 {
		return result, fmt.Errorf("all %d reminder deliveries failed", failed)
	}
	return result, nil
}

func schoolName() string {
	if name := os.Getenv("SCHOOL_NAME"); name != "" {
		return name
	}
	return "School Office"
}

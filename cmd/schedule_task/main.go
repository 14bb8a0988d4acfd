package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"

	"schoolfee_app_echo/internal/services"
	"schoolfee_app_echo/internal/tasks"
)

// Seeds the recurring overdue reminder into the outbox. Run once per
// deployment; re-running creates another independent schedule.
func main() {
	dueStr := flag.String("due", "", "First run (format: 2006-01-02 15:04, local time; defaults to next 09:00)")
	rule := flag.String("rrule", "FREQ=WEEKLY;BYDAY=MO", "RFC 5545 recurrence rule")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := services.InitDB(dsn)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	if _, err := rrule.StrToRRule(*rule); err != nil {
		log.Fatalf("Invalid recurrence rule %q: %v", *rule, err)
	}

	due := nextMorning(time.Now())
	if *dueStr != "" {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			log.Fatalf("Invalid due date format, use '2006-01-02 15:04': %v", err)
		}
	}

	task, err := tasks.OverdueReminderTask.CreateTask(due, *rule)
	if err != nil {
		log.Fatalf("Failed to build task: %v", err)
	}
	if err := db.Create(task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Scheduled overdue reminder (task ID %d)\nFirst run: %s\nRule: %s\n", task.ID, task.Due, *rule)
}

func nextMorning(now time.Time) time.Time {
	morning := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
	if !morning.After(now) {
		morning = morning.AddDate(0, 0, 1)
	}
	return morning
}

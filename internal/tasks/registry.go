package tasks

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"schoolfee_app_echo/internal/models"
	"schoolfee_app_echo/internal/services"
)

// Deps bundles the services a task handler may need
type Deps struct {
	DB    *gorm.DB
	Store *services.FeeStore
	Email *services.EmailService
}

// TaskHandler executes one task and returns a result map recorded in the
// task history.
type TaskHandler func(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error)

// Registry maps task names to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

// GlobalRegistry is the default registry used by the worker
var GlobalRegistry = &Registry{
	handlers: make(map[string]TaskHandler),
}

// Register adds a handler for a task name
func (r *Registry) Register(name string, handler TaskHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Get retrieves a handler for a task name
func (r *Registry) Get(name string) (TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// RegisterHandler registers to the global registry
func RegisterHandler(name string, handler TaskHandler) {
	GlobalRegistry.Register(name, handler)
}

// GetHandler reads from the global registry
func GetHandler(name string) (TaskHandler, bool) {
	return GlobalRegistry.Get(name)
}

// DefineTasks registers every task the worker can execute
func DefineTasks() {
	RegisterHandler(SendReceiptEmailTask.TaskID(), SendReceiptEmailTask.HandleExecution)
	RegisterHandler(OverdueReminderTask.TaskID(), OverdueReminderTask.HandleExecution)
}

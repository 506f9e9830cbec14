// Package queue implementa la cola diferida de tareas del pipeline SRI.
// Backends: memoria (un solo proceso) y Redis (API y workers separados).
package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
)

// ErrInvalidTask tarea sin tipo o sin factura.
var ErrInvalidTask = errors.New("queue: tarea inválida")

// DefaultVisibility tiempo que una tarea reclamada queda oculta antes de reentregarse.
const DefaultVisibility = 5 * time.Minute

var _ billing.Queue = (*MemoryQueue)(nil)

// MemoryQueue cola en memoria ordenada por RunAt.
type MemoryQueue struct {
	mu         sync.Mutex
	ready      []billing.Task
	inflight   map[string]inflightTask
	visibility time.Duration
	now        func() time.Time
}

type inflightTask struct {
	task     billing.Task
	deadline time.Time
}

// NewMemoryQueue construye la cola. now nil usa time.Now.
func NewMemoryQueue(visibility time.Duration, now func() time.Time) *MemoryQueue {
	if visibility <= 0 {
		visibility = DefaultVisibility
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryQueue{
		inflight:   make(map[string]inflightTask),
		visibility: visibility,
		now:        now,
	}
}

// Enqueue agrega la tarea. Asigna ID y RunAt si vienen vacíos.
func (q *MemoryQueue) Enqueue(_ context.Context, task billing.Task) error {
	task, err := prepare(task, q.now())
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.push(task)
	return nil
}

// Claim entrega la tarea vencida más antigua, o nil si no hay ninguna.
func (q *MemoryQueue) Claim(_ context.Context) (*billing.Task, error) {
	now := q.now()
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, in := range q.inflight {
		if !in.deadline.After(now) {
			delete(q.inflight, id)
			q.push(in.task)
		}
	}

	if len(q.ready) == 0 || q.ready[0].RunAt.After(now) {
		return nil, nil
	}
	task := q.ready[0]
	q.ready = q.ready[1:]
	q.inflight[task.ID] = inflightTask{task: task, deadline: now.Add(q.visibility)}
	return &task, nil
}

// Ack confirma la tarea. Confirmar una tarea desconocida no es error.
func (q *MemoryQueue) Ack(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, taskID)
	return nil
}

// Len tareas pendientes (sin contar las reclamadas).
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// Pending copia de las tareas pendientes en orden de ejecución.
func (q *MemoryQueue) Pending() []billing.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]billing.Task, len(q.ready))
	copy(out, q.ready)
	return out
}

func (q *MemoryQueue) push(task billing.Task) {
	i := sort.Search(len(q.ready), func(i int) bool {
		return q.ready[i].RunAt.After(task.RunAt)
	})
	q.ready = append(q.ready, billing.Task{})
	copy(q.ready[i+1:], q.ready[i:])
	q.ready[i] = task
}

func prepare(task billing.Task, now time.Time) (billing.Task, error) {
	if task.Kind == "" || task.InvoiceID == "" {
		return task, ErrInvalidTask
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.RunAt.IsZero() {
		task.RunAt = now
	}
	if task.Attempt < 1 {
		task.Attempt = 1
	}
	return task, nil
}

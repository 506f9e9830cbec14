package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
)

// claimScript devuelve a ready las tareas cuya visibilidad venció y mueve la
// primera tarea vencida de ready a inflight con su nuevo plazo.
const claimScript = `
local expired = redis.call("ZRANGEBYSCORE", KEYS[2], "-inf", ARGV[1])
for _, id in ipairs(expired) do
  redis.call("ZREM", KEYS[2], id)
  redis.call("ZADD", KEYS[1], ARGV[1], id)
end
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, 1)
if #due == 0 then
  return false
end
redis.call("ZREM", KEYS[1], due[1])
redis.call("ZADD", KEYS[2], ARGV[2], due[1])
return due[1]
`

var _ billing.Queue = (*RedisQueue)(nil)

// RedisQueue cola compartida entre procesos.
//
//	<prefix>:ready     ZSET id → run_at (ms)
//	<prefix>:inflight  ZSET id → plazo de visibilidad (ms)
//	<prefix>:payload   HASH id → tarea JSON
type RedisQueue struct {
	client     *redis.Client
	script     *redis.Script
	prefix     string
	visibility time.Duration
	now        func() time.Time
}

// NewRedisClient abre el cliente a partir de REDIS_URL y verifica la conexión.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("queue: REDIS_URL vacío")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("queue: REDIS_URL inválido: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("queue: ping redis: %w", err)
	}
	return client, nil
}

// NewRedisQueue construye la cola sobre un cliente existente.
func NewRedisQueue(client *redis.Client, prefix string, visibility time.Duration, now func() time.Time) *RedisQueue {
	if prefix == "" {
		prefix = "sri:tasks"
	}
	if visibility <= 0 {
		visibility = DefaultVisibility
	}
	if now == nil {
		now = time.Now
	}
	return &RedisQueue{
		client:     client,
		script:     redis.NewScript(claimScript),
		prefix:     prefix,
		visibility: visibility,
		now:        now,
	}
}

func (q *RedisQueue) readyKey() string    { return q.prefix + ":ready" }
func (q *RedisQueue) inflightKey() string { return q.prefix + ":inflight" }
func (q *RedisQueue) payloadKey() string  { return q.prefix + ":payload" }

// Enqueue guarda la tarea y la agenda para RunAt.
func (q *RedisQueue) Enqueue(ctx context.Context, task billing.Task) error {
	task, err := prepare(task, q.now())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("queue: serializar tarea: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.payloadKey(), task.ID, payload)
		pipe.ZAdd(ctx, q.readyKey(), redis.Z{Score: float64(task.RunAt.UnixMilli()), Member: task.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("queue: encolar %s: %w", task.Kind, err)
	}
	return nil
}

// Claim reclama la tarea vencida más antigua. (nil, nil) si no hay ninguna.
func (q *RedisQueue) Claim(ctx context.Context) (*billing.Task, error) {
	now := q.now()
	id, err := q.script.Run(ctx, q.client,
		[]string{q.readyKey(), q.inflightKey()},
		now.UnixMilli(), now.Add(q.visibility).UnixMilli(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: reclamar tarea: %w", err)
	}

	raw, err := q.client.HGet(ctx, q.payloadKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		// confirmada por otro worker entre el script y la lectura
		_ = q.client.ZRem(ctx, q.inflightKey(), id).Err()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: leer tarea %s: %w", id, err)
	}
	var task billing.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("queue: tarea %s corrupta: %w", id, err)
	}
	return &task, nil
}

// Ack elimina la tarea de inflight y su payload.
func (q *RedisQueue) Ack(ctx context.Context, taskID string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.inflightKey(), taskID)
		pipe.HDel(ctx, q.payloadKey(), taskID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("queue: ack %s: %w", taskID, err)
	}
	return nil
}

// Len tareas en ready.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.readyKey()).Result()
}

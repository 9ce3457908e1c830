package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"builderhub/config"
	"builderhub/services/booking"
	"builderhub/services/tasks"
	"builderhub/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// conflictListKey is the Redis list operators read to inspect contested
// booking events.
const conflictListKey = "booking:conflicts"

// InitBookingWorker runs the async booking worker in background: it parks
// contested transitions for inspection and sweeps stale payment-pending
// bookings against the payment collaborator.
func InitBookingWorker(lifecycle booking.LifecycleService, queue *tasks.Queue) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeConflictInspect, handleConflictInspect)
	mux.HandleFunc(tasks.TypeReconcilePending, handleReconcilePending(lifecycle))

	go runPendingSweepTicker(queue)

	go func() {
		log.Println("[BookingWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[BookingWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[BookingWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// handleConflictInspect records a contested transition where operators can
// see it. The event is preserved verbatim; nothing is retried
// automatically.
func handleConflictInspect(ctx context.Context, task *asynq.Task) error {
	var p tasks.ConflictPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		log.Printf("[ConflictInspect] invalid payload: %v", err)
		return err
	}

	utils.GetLogger().Error("booking transition needs manual inspection",
		zap.String("bookingId", p.BookingID),
		zap.String("event", p.EventKind),
		zap.String("detail", p.Detail))

	cache := utils.GetCacheClient()
	if err := cache.LPush(ctx, conflictListKey, task.Payload()).Err(); err != nil {
		return err
	}
	return nil
}

func handleReconcilePending(lifecycle booking.LifecycleService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		age := time.Duration(config.AppConfig.PendingSweepAgeMin) * time.Minute
		applied, err := lifecycle.SweepStalePending(ctx, age, 100)
		if err != nil {
			log.Printf("[ReconcilePending] sweep failed: %v", err)
			return err
		}
		if applied > 0 {
			log.Printf("[ReconcilePending] applied %d stale checkout results", applied)
		}
		return nil
	}
}

func runPendingSweepTicker(queue *tasks.Queue) {
	every := time.Duration(config.AppConfig.PendingSweepEveryMin) * time.Minute
	if every <= 0 {
		every = 15 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	ctx := context.Background()
	for range ticker.C {
		if err := queue.EnqueueReconcileSweep(ctx); err != nil {
			log.Printf("[BookingWorker] failed to schedule pending sweep: %v", err)
		}
	}
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/internal/metrics"
	"github.com/planforge/api/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// WorkerOption is a functional option for configuring the Worker.
type WorkerOption func(*Worker)

// Worker processes background jobs.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	logger  *logger.Logger
	sweeper ReminderSweeper
}

// WithReminderSweeper registers the onboarding reminder sweep handler.
func WithReminderSweeper(sweeper ReminderSweeper) WorkerOption {
	return func(w *Worker) {
		w.sweeper = sweeper
	}
}

// NewWorker creates a new background job worker.
func NewWorker(cfg WorkerConfig, emailService *app.EmailService, log *logger.Logger, opts ...WorkerOption) (*Worker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default":     10,
				"email":       5,
				"maintenance": 2,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.Use(metricsMiddleware)

	// Register email handlers
	emailHandler := NewEmailTaskHandler(emailService, log)
	mux.HandleFunc(TypeEmailWelcome, emailHandler.HandleWelcomeEmail)
	mux.HandleFunc(TypeEmailOnboardingReminder, emailHandler.HandleOnboardingReminder)
	mux.HandleFunc(TypeEmailOnboardingComplete, emailHandler.HandleOnboardingComplete)
	mux.HandleFunc(TypeEmailVerification, emailHandler.HandleVerificationEmail)
	mux.HandleFunc(TypeEmailPasswordReset, emailHandler.HandlePasswordReset)

	w := &Worker{
		server: server,
		mux:    mux,
		logger: log,
	}

	// Apply options
	for _, opt := range opts {
		opt(w)
	}

	// Register the sweep handler if a sweeper is provided
	if w.sweeper != nil {
		reminderHandler := NewReminderTaskHandler(w.sweeper, log)
		mux.HandleFunc(TypeOnboardingReminderSweep, reminderHandler.HandleReminderSweep)
		log.Info("onboarding reminder sweep handler registered")
	}

	return w, nil
}

// metricsMiddleware records per-task counters and durations.
func metricsMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)

		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.JobsProcessedTotal.WithLabelValues(t.Type(), status).Inc()
		metrics.JobDuration.WithLabelValues(t.Type()).Observe(time.Since(start).Seconds())

		return err
	})
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until shutdown.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}

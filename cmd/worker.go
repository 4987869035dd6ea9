package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"histreader/internal/app"
	"histreader/internal/tasks"
	"histreader/internal/worker"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job worker",
	Long: `Starts the asynq worker process that handles queued article fetches.
When worker.schedule is set, a periodic fetch is also registered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get application context: %w", err)
		}

		if err := runWorker(appInstance); err != nil {
			log.Errorf("Worker exited with error: %v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// runWorker initializes and runs the asynq worker server.
func runWorker(appInstance *app.App) error {
	cfg := appInstance.Config
	if cfg.Redis.Address == "" {
		return fmt.Errorf("the worker requires redis.address to be configured")
	}
	redisOpts := appInstance.RedisOpts()

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      cfg.Worker.Queues,
			Logger:      log.StandardLogger(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				id, _ := asynq.GetTaskID(ctx)
				log.WithFields(log.Fields{"task_id": id, "type": task.Type()}).Errorf("task failed: %v", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, worker.FetchDeps{Reader: appInstance.ReaderService})

	var scheduler *asynq.Scheduler
	if cfg.Worker.Schedule != "" {
		scheduler = asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Logger: log.StandardLogger()})
		payload, err := tasks.NewScheduledFetchPayload()
		if err != nil {
			return err
		}
		entryID, err := scheduler.Register(cfg.Worker.Schedule,
			asynq.NewTask(tasks.TypeFetchArticle, payload),
			asynq.Queue(tasks.QueueDefault), asynq.MaxRetry(0))
		if err != nil {
			return fmt.Errorf("failed to register schedule %q: %w", cfg.Worker.Schedule, err)
		}
		log.Infof("Registered periodic fetch %s (%s)", entryID, cfg.Worker.Schedule)
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	log.Infof("Starting asynq worker server (Concurrency: %d, Queues: %v)...", cfg.Worker.Concurrency, cfg.Worker.Queues)
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	log.Info("Shutdown signal received. Initiating graceful shutdown...")
	if scheduler != nil {
		scheduler.Shutdown()
	}
	srv.Stop()
	srv.Shutdown()

	log.Info("Worker shutdown complete.")
	return nil
}

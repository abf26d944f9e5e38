package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/thejoltjoker/crowdplay-sub000/game"
)

const TypeArchiveGame = "game:archive"

type ArchivePayload struct {
	Game game.Game `json:"game"`
}

func NewArchiveTask(g game.Game) (*asynq.Task, error) {
	payload, err := json.Marshal(ArchivePayload{Game: g})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeArchiveGame, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Archiver hands finished games off for persistence.
type Archiver interface {
	EnqueueArchive(ctx context.Context, g game.Game) error
}

type TaskArchiver struct {
	client *asynq.Client
}

func NewTaskArchiver(client *asynq.Client) *TaskArchiver {
	return &TaskArchiver{client: client}
}

func (a *TaskArchiver) EnqueueArchive(ctx context.Context, g game.Game) error {
	task, err := NewArchiveTask(g)
	if err != nil {
		return fmt.Errorf("build archive task: %w", err)
	}
	_, err = a.client.EnqueueContext(ctx, task, asynq.TaskID("archive:"+g.ID))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

type gameArchive interface {
	Archive(ctx context.Context, g game.Game) error
}

type ArchiveHandler struct {
	archive gameArchive
	log     *logrus.Entry
}

func NewArchiveHandler(archive gameArchive, logger *logrus.Logger) *ArchiveHandler {
	return &ArchiveHandler{archive: archive, log: logger.WithField("component", "archive_handler")}
}

// ProcessTask implements asynq.Handler.
func (h *ArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ArchivePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode archive payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"game_id":   p.Game.ID,
	})
	if err := h.archive.Archive(ctx, p.Game); err != nil {
		if errors.Is(err, game.ErrInvalidState) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logCtx.WithError(err).Warn("Archive failed, will retry")
		return err
	}
	logCtx.Debug("Archive task done")
	return nil
}

// WorkerServer runs the asynq worker that processes archive tasks.
type WorkerServer struct {
	server  *asynq.Server
	log     *logrus.Entry
	handler *ArchiveHandler
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, handler *ArchiveHandler, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{server: server, log: logEntry, handler: handler}
}

// Start launches the worker goroutines and returns. Call Shutdown to stop.
func (ws *WorkerServer) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeArchiveGame, ws.handler.ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Start(mux); err != nil {
		return fmt.Errorf("start worker server: %w", err)
	}
	return nil
}

func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server stopped.")
}

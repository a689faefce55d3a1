package worker

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/persistence"
)

// AuditWorker mirrors authentication events to the log and keeps a capped
// trail of them in a Redis list. The trail is diagnostic only; it carries no
// token material and plays no part in token validity.
type AuditWorker struct {
	redis  *persistence.Redis
	logger *zap.Logger
	key    string
	max    int64
}

// NewAuditWorker constructs the worker.
func NewAuditWorker(redis *persistence.Redis, logger *zap.Logger, key string, max int64) *AuditWorker {
	if max <= 0 {
		max = 1000
	}
	return &AuditWorker{redis: redis, logger: logger, key: key, max: max}
}

// Register subscribes the worker to every authentication event type.
func (w *AuditWorker) Register(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventAccountRegistered,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventTokenRefreshed,
	} {
		dispatcher.Subscribe(eventType, w.handle)
	}
}

func (w *AuditWorker) handle(ctx context.Context, event events.Event) error {
	w.logger.Info("auth event",
		zap.String("type", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.String("event_id", event.ID),
	)

	if w.redis == nil || w.redis.Client == nil {
		return nil
	}
	record, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := w.redis.Client.TxPipeline()
	pipe.LPush(ctx, w.key, record)
	pipe.LTrim(ctx, w.key, 0, w.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		w.logger.Warn("audit trail write failed", zap.Error(err))
	}
	return nil
}

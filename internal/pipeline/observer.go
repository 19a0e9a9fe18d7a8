package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/metrics"
)

type logObserver struct {
	log *zap.Logger
}

// NewLogObserver logs stage transitions and mirrors them into metrics.
func NewLogObserver(log *zap.Logger) Observer {
	return &logObserver{log: log.With(zap.String("component", "pipeline"))}
}

func (l *logObserver) OnStart(stage string) {
	metrics.SetStageRunning(stage, true)
	l.log.Info("stage started", zap.String("stage", stage))
}

func (l *logObserver) OnError(stage string, err error) {
	if errors.Is(err, context.Canceled) {
		l.log.Info("stage cancelled", zap.String("stage", stage))
		return
	}
	metrics.IncError(stage)
	l.log.Error("stage failed", zap.String("stage", stage), zap.Error(err))
}

func (l *logObserver) OnStop(stage string, summary []zap.Field) {
	metrics.SetStageRunning(stage, false)
	l.log.Info("stage stopped", append([]zap.Field{zap.String("stage", stage)}, summary...)...)
}

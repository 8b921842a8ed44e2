package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"FinCurve/internal/domain/models"
	domrepo "FinCurve/internal/domain/repository"
	"FinCurve/pkg/curve"
	pkgkafka "FinCurve/pkg/kafka"
	"FinCurve/pkg/logger"
)

// KafkaCurvesHandler applies curve definition events to the registry.
type KafkaCurvesHandler struct {
	topic    string
	registry *CurveRegistry
	metrics  domrepo.Metrics
	log      *logger.Logger
}

func NewKafkaCurvesHandler(topic string, registry *CurveRegistry, metrics domrepo.Metrics, log *logger.Logger) *KafkaCurvesHandler {
	return &KafkaCurvesHandler{topic: topic, registry: registry, metrics: metrics, log: log}
}

func (h *KafkaCurvesHandler) Topic() string { return h.topic }

// incoming message schema: {name, curve, delete}
// Malformed events are dropped; only store failures are returned for retry.
func (h *KafkaCurvesHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.CurveEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.log.Warn("dropping curve event", logger.Error(err))
		return nil
	}

	if ev.Delete {
		err := h.registry.Remove(ctx, ev.Name)
		if errors.Is(err, domrepo.ErrCurveNotFound) {
			return nil
		}
		return err
	}

	cfg, err := curve.ParseConfig(ev.Curve)
	if err == nil {
		_, err = h.registry.Define(ctx, ev.Name, cfg)
	}
	if err != nil {
		if IsInputError(err) {
			h.log.Warn("dropping curve event",
				logger.String("curve", ev.Name),
				logger.String("code", ErrorCode(err)),
				logger.Error(err),
			)
			return nil
		}
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCurvesHandler)(nil)

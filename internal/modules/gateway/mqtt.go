package gateway

import (
	"context"
	"log/slog"

	"envgate-server/internal/modules/gateway/service"
	"envgate-server/internal/modules/gateway/types"
)

type MQTTSubscriber interface {
	SetMessageHandler(handler func(ctx context.Context, topic string, payload []byte) error)
}

type ingester interface {
	Ingest(ctx context.Context, body []byte, meta service.Meta) (types.Envelope, error)
}

// RegisterMQTTHandler routes every MQTT payload through the same ingestion
// path as POST /data.
func RegisterMQTTHandler(subscriber MQTTSubscriber, svc ingester, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(ctx context.Context, topic string, payload []byte) error {
		env, err := svc.Ingest(ctx, payload, service.Meta{Source: "mqtt"})
		if err != nil {
			return err
		}
		logger.Debug("processed mqtt reading",
			"topic", topic,
			"prediction", env.GatewayData.Prediction,
		)
		return nil
	})
}

package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-bengkel-orders/internal/kafka"
	"github.com/ariefcatur/go-bengkel-orders/internal/orders"
	"github.com/ariefcatur/go-bengkel-orders/internal/redisx"
)

// Service turns order lifecycle events into customer notifications. The
// actual delivery channel lives elsewhere; here we dedup, decode and hand the
// message to the log sink.
type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// Handle is installed as the consumer handler for every order topic.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup on event_id; redelivery after a rebalance is normal
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.Log.Info("notify: order received",
			zap.String("order_id", p.OrderID),
			zap.String("customer_id", p.CustomerID),
			zap.String("plate_number", p.PlateNumber),
			zap.Int64("total_cents", p.TotalCents))
	case orders.EventOrderUpdated:
		p, err := kafkax.UnwrapPayload[orders.OrderUpdatedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.Log.Info("notify: order changed",
			zap.String("order_id", p.OrderID),
			zap.Int64("total_cents", p.TotalCents))
	case orders.EventPaymentAdded:
		p, err := kafkax.UnwrapPayload[orders.PaymentAddedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.Log.Info("notify: payment received",
			zap.String("order_id", p.OrderID),
			zap.String("type", string(p.Type)),
			zap.Int64("amount_cents", p.AmountCents))
	case orders.EventOrderCompleted:
		p, err := kafkax.UnwrapPayload[orders.OrderCompletedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.Log.Info("notify: car ready for pickup",
			zap.String("order_id", p.OrderID),
			zap.String("customer_id", p.CustomerID),
			zap.Time("warranty_end", p.WarrantyEnd))
	default:
		// unknown event versions pass through silently
	}
	return nil
}

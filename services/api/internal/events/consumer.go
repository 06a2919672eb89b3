package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/app"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

const (
	RKPaymentPaid   = "payment.paid"
	RKPaymentFailed = "payment.failed"

	defaultPrefetch = 8
)

// PaymentPaid is published by the payment service once the online share of a
// booking has been charged.
type PaymentPaid struct {
	BookingID string `json:"booking_id"`
	PaymentID string `json:"payment_id"`
	ChargeID  string `json:"charge_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

func (p PaymentPaid) paymentID() string {
	if p.PaymentID != "" {
		return p.PaymentID
	}
	return p.ChargeID
}

// PaymentSettler is the booking service operation the consumer drives.
type PaymentSettler interface {
	SettlePayment(ctx context.Context, in app.SettlePaymentInput) (app.SettlePaymentResult, error)
}

// PaymentConsumer settles bookings from payment.paid messages. Settlement is
// idempotent on the payment id, so redeliveries are harmless.
type PaymentConsumer struct {
	settler PaymentSettler
	logger  *slog.Logger

	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPaymentConsumer(settler PaymentSettler, logger *slog.Logger) *PaymentConsumer {
	return &PaymentConsumer{settler: settler, logger: logger}
}

// Connect declares exchange and a durable queue bound to payment.*.
func (c *PaymentConsumer) Connect(url, exchange, queue string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("%s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, "payment.*", exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	if err := ch.Qos(defaultPrefetch, 0, false); err != nil {
		return fail("set qos", err)
	}

	c.conn, c.ch, c.queue = conn, ch, q.Name
	return nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	if c.ch == nil {
		return errors.New("payment consumer not connected")
	}
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "car-rental-api", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	return c.Serve(ctx, msgs)
}

// Serve handles deliveries from msgs until ctx is done or msgs is closed.
func (c *PaymentConsumer) Serve(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.dispatch(ctx, d)
		}
	}
}

func (c *PaymentConsumer) dispatch(ctx context.Context, d amqp.Delivery) {
	err := c.Handle(ctx, d.RoutingKey, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case isPermanent(err):
		c.logger.Warn("dropping payment message", "key", d.RoutingKey, "err", err)
		_ = d.Nack(false, false)
	default:
		c.logger.Error("payment message failed, requeueing", "key", d.RoutingKey, "err", err)
		_ = d.Nack(false, true)
	}
}

// Handle processes one message. Unknown routing keys are ignored.
func (c *PaymentConsumer) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case RKPaymentPaid:
		var ev PaymentPaid
		if err := json.Unmarshal(body, &ev); err != nil {
			return &permanentError{fmt.Errorf("decode %s: %w", key, err)}
		}
		res, err := c.settler.SettlePayment(ctx, app.SettlePaymentInput{
			BookingID: ev.BookingID,
			PaymentID: ev.paymentID(),
		})
		if err != nil {
			if domain.ErrorCode(err) != "" {
				return &permanentError{err}
			}
			return err
		}
		if res.Created {
			c.logger.Info("payment settled", "booking_id", ev.BookingID, "payment_id", ev.paymentID())
		}
		return nil
	case RKPaymentFailed:
		// The payment deadline still applies; the sweeper expires the booking.
		c.logger.Info("payment failed", "body", string(body))
		return nil
	default:
		c.logger.Debug("skip unknown key", "key", key)
		return nil
	}
}

func (c *PaymentConsumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// permanentError marks messages that will never succeed on redelivery.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

package queue

import (
	"context"
	"time"

	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
)

var deliveries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_deliveries_total",
		Help: "Queue deliveries by outcome",
	},
	[]string{"queue", "outcome"}, // acked | requeued | dropped
)

// attemptsHeader carries the delivery attempt count across retries. The
// broker does not count plain Nack(requeue) redeliveries, so the Router
// republishes failed deliveries with this header incremented itself.
const attemptsHeader = "x-attempts"

// Router manages multiple consumers (one per registered queue) on a single
// AMQP channel. Retry policy: with no attempt cap a failed handler nacks
// with requeue and the broker redelivers. With WithMaxAttempts the failed
// delivery is republished to the same queue with an incremented attempt
// header; once the cap is reached it is nacked without requeue and the
// queue's dead-letter exchange parks it.
type Router struct {
	ch            *amqp.Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	maxAttempts   int
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

// --- Options ---

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

// WithMaxAttempts caps delivery attempts; 0 means retry forever.
func WithMaxAttempts(n int) RouterOption { return func(r *Router) { r.maxAttempts = n } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s,
// requeueOnErr=true, unlimited attempts.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming; non-blocking (spawns one goroutine per queue).
// QoS (prefetch) is set per-channel and applies to all consumers on this channel.
func (r *Router) Start() error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	log := logging.New("rmq-router")
	for _, reg := range r.registrations {
		msgs, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}

		go func(queueName, tag string, h Handler, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				ctx, cancel := context.WithTimeout(context.Background(), r.callTimeout)
				err := h.Handle(ctx, d)
				cancel()

				if err == nil {
					_ = d.Ack(false)
					deliveries.WithLabelValues(queueName, "acked").Inc()
					continue
				}

				attempts := attemptCount(d) + 1
				if r.exhausted(attempts) {
					log.Error("handler error, attempts exhausted",
						"queue", queueName, "tag", tag, "rk", d.RoutingKey,
						"attempts", attempts, "err", err)
					_ = d.Nack(false, false) // dead-letters to the parked queue
					deliveries.WithLabelValues(queueName, "dropped").Inc()
					continue
				}

				log.Error("handler error",
					"queue", queueName, "tag", tag, "rk", d.RoutingKey,
					"attempts", attempts, "requeue", r.requeueOnErr, "err", err)

				if r.maxAttempts > 0 {
					if pubErr := r.republish(queueName, d, attempts); pubErr != nil {
						// Plain requeue loses the attempt count but keeps the
						// message alive.
						log.Error("republish failed, requeueing without count",
							"queue", queueName, "err", pubErr)
						_ = d.Nack(false, true)
					} else {
						_ = d.Ack(false)
					}
					deliveries.WithLabelValues(queueName, "requeued").Inc()
					continue
				}

				_ = d.Nack(false, r.requeueOnErr)
				if r.requeueOnErr {
					deliveries.WithLabelValues(queueName, "requeued").Inc()
				} else {
					deliveries.WithLabelValues(queueName, "dropped").Inc()
				}
			}
			log.Info("consumer stopped", "queue", queueName, "tag", tag)
		}(reg.queueName, reg.consumerTag, reg.handler, msgs)
	}

	return nil
}

// exhausted reports whether a delivery on its given attempt is out of
// retries. A zero cap never exhausts.
func (r *Router) exhausted(attempts int) bool {
	return r.maxAttempts > 0 && attempts >= r.maxAttempts
}

// republish re-enqueues the delivery with the attempt count carried in a
// header, via the default exchange straight back to the queue.
func (r *Router) republish(queueName string, d amqp.Delivery, attempts int) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[attemptsHeader] = int32(attempts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
		Body:         d.Body,
	})
}

func attemptCount(d amqp.Delivery) int {
	switch v := d.Headers[attemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

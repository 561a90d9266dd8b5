package visits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
)

// learningTimeout bounds one asynchronous learning update.
const learningTimeout = 10 * time.Second

// InlineDispatcher applies learning in a goroutine detached from the
// request context.
type InlineDispatcher struct {
	apply func(context.Context, LearningEvent) error
	wg    sync.WaitGroup
}

// NewInlineDispatcher creates a dispatcher that runs apply asynchronously.
func NewInlineDispatcher(apply func(context.Context, LearningEvent) error) *InlineDispatcher {
	return &InlineDispatcher{apply: apply}
}

// Dispatch implements Dispatcher.
func (d *InlineDispatcher) Dispatch(ctx context.Context, ev LearningEvent) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), learningTimeout)
		defer cancel()
		_ = d.apply(ctx, ev)
	}()
	return nil
}

// Wait blocks until every dispatched update has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}

// NATSDispatcher publishes learning events to a NATS subject.
type NATSDispatcher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSDispatcher creates a publisher on subject.
func NewNATSDispatcher(nc *nats.Conn, subject string) *NATSDispatcher {
	return &NATSDispatcher{nc: nc, subject: subject}
}

// Dispatch implements Dispatcher.
func (d *NATSDispatcher) Dispatch(_ context.Context, ev LearningEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal learning event: %w", err)
	}
	if err := d.nc.Publish(d.subject, data); err != nil {
		return fmt.Errorf("publish learning event: %w", err)
	}
	return nil
}

// Subscribe applies learning events received on subject. Malformed
// messages are logged and dropped. Events are applied one at a time in
// arrival order.
func Subscribe(nc *nats.Conn, subject string, apply func(context.Context, LearningEvent) error, logger *logging.Logger) (*nats.Subscription, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), learningTimeout)
		defer cancel()

		var ev LearningEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warn(ctx, "dropping malformed learning event", zap.Error(err))
			return
		}
		_ = apply(ctx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// Connect dials NATS with the reconnect policy used for learning events.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("choosethere"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

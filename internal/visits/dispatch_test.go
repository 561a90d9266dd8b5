package visits

import (
	"context"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestNATSDispatcher_Publish(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("choosethere.visits", ch)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()

	d := NewNATSDispatcher(nc, "choosethere.visits")
	require.NoError(t, d.Dispatch(context.Background(), LearningEvent{
		VisitID: "v1", RestaurantID: "r1", Rating: 4, Tags: []string{"sushi"}, Category: "Japanese",
	}))

	select {
	case msg := <-ch:
		assert.JSONEq(t,
			`{"visit_id":"v1","restaurant_id":"r1","rating":4,"tags":["sushi"],"category":"Japanese"}`,
			string(msg.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for learning event")
	}
}

func TestSubscribe_EndToEnd(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	f := newFixture(t)
	svc := f.service(WithDispatcher(NewNATSDispatcher(nc, "visits.test")))

	sub, err := Subscribe(nc, "visits.test", svc.ApplyLearning, f.logger.Logger)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, nc.Flush())

	_, err = svc.Submit(context.Background(), RecordRequest{RestaurantID: "r1", Rating: 5})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return f.learner.Store().Snapshot().WeightForTag("sushi") == 1.0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_DropsMalformed(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	logger := logging.NewTestLogger()
	var (
		mu      sync.Mutex
		applied int
	)
	sub, err := Subscribe(nc, "visits.bad", func(context.Context, LearningEvent) error {
		mu.Lock()
		applied++
		mu.Unlock()
		return nil
	}, logger.Logger)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()

	require.NoError(t, nc.Publish("visits.bad", []byte("{not json")))
	require.NoError(t, nc.Publish("visits.bad", []byte(`{"visit_id":"v2","rating":5}`)))
	require.NoError(t, nc.Flush())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return applied == 1
	}, 2*time.Second, 10*time.Millisecond)
	logger.AssertLogged(t, zapcore.WarnLevel, "dropping malformed learning event")
}

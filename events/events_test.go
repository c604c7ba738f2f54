package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second), "embedded NATS not ready")
	return srv.ClientURL()
}

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	assert.NoError(t, pub.Publish(context.Background(), TopicTimeoutAdded, TimeoutEvent{}))
	assert.NoError(t, pub.Close())
}

func TestNATSPublisherImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNATSPublisherPublish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe("durandal.timeout.>", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe() //nolint:errcheck
	require.NoError(t, nc.Flush())

	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := TimeoutEvent{GuildID: "g1", UserID: "u1", ExpiresAt: expires, Reason: "spam"}
	require.NoError(t, pub.Publish(context.Background(), TopicTimeoutAdded, event))
	require.NoError(t, pub.Publish(context.Background(), TopicTimeoutExpired, event))
	require.NoError(t, pub.conn.Flush())

	var subjects []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-ch:
			subjects = append(subjects, msg.Subject)
			var got TimeoutEvent
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, "u1", got.UserID)
			assert.True(t, got.ExpiresAt.Equal(expires))
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	assert.ElementsMatch(t, []string{TopicTimeoutAdded, TopicTimeoutExpired}, subjects)
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1")
	assert.Error(t, err)
}

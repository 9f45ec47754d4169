package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docrunner/internal/config"
)

// TestNewPublisherDisabled returns the no-op without touching the network.
func TestNewPublisherDisabled(t *testing.T) {
	pub, err := NewPublisher(config.EventsConfig{Enabled: false, URL: "nats://nowhere:4222"})
	require.NoError(t, err)
	_, ok := pub.(NopPublisher)
	assert.True(t, ok)

	// All methods are safe no-ops.
	pub.BuildStarted(context.Background(), BuildEvent{BuildID: "b-1"})
	pub.StageCompleted(context.Background(), BuildEvent{BuildID: "b-1", Stage: "build"})
	pub.BuildFinished(context.Background(), BuildEvent{BuildID: "b-1", Outcome: "success"})
	pub.Close()
}

// TestNewPublisherUnreachable surfaces connection errors to the caller so the
// daemon can decide whether to start without events.
func TestNewPublisherUnreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "docrunner")
	require.Error(t, err)
}

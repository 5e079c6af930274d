package daemon

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docmake/internal/config"
)

func TestPublisher_NilIsNoOp(t *testing.T) {
	var p *Publisher
	p.Publish(BuildEvent{Type: EventBuildFinished})
	p.Close()
}

func TestNewPublisher_UnconfiguredReturnsNil(t *testing.T) {
	p, err := NewPublisher(nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewPublisher(&config.NATSConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "DOCMAKE_BUILDS", streamName("docmake.builds"))
}

func TestBuildEvent_JSONShape(t *testing.T) {
	started, err := json.Marshal(BuildEvent{
		Type:      EventBuildStarted,
		Mode:      "html",
		Reason:    TriggerSchedule,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Contains(t, string(started), `"type":"started"`)
	assert.Contains(t, string(started), `"reason":"schedule"`)
	assert.NotContains(t, string(started), "outcome")

	finished, err := json.Marshal(BuildEvent{
		Type:    EventBuildFinished,
		BuildID: "abc",
		Mode:    "html",
		Outcome: "success",
		Reason:  TriggerWatch,
	})
	require.NoError(t, err)
	assert.Contains(t, string(finished), `"build_id":"abc"`)
	assert.Contains(t, string(finished), `"outcome":"success"`)
}

package island

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuccess(t *testing.T) {
	v, err := ParseSuccess("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseSuccess("false")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.False(t, *v)

	_, err = ParseSuccess("yes")
	assert.Error(t, err)
}

func TestParseTimestampConstraint(t *testing.T) {
	tests := []struct {
		in      string
		op      TimestampOp
		ts      float64
		wantErr bool
	}{
		{in: "", op: "", ts: 0},
		{in: "gt:1700000000.5", op: After, ts: 1700000000.5},
		{in: "lt:12", op: Before, ts: 12},
		{in: "eq:12", wantErr: true},
		{in: "gt:", wantErr: true},
		{in: "gt:soon", wantErr: true},
		{in: "12", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, ts, err := ParseTimestampConstraint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.ts, ts)
		})
	}
}

func TestEventFilterValidate(t *testing.T) {
	assert.NoError(t, EventFilter{Tag: "T1110", TimestampOp: After}.Validate())
	assert.Error(t, EventFilter{Tag: "bad tag!"}.Validate())
	assert.Error(t, EventFilter{TimestampOp: "eq"}.Validate())
}

func TestAgentEventsQuery(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, PathAgentEvents, r.URL.Path)
		assert.Equal(t, "ExploitationEvent", q.Get("type"))
		assert.Equal(t, "false", q.Get("success"))
		assert.Equal(t, "lt:1700000000", q.Get("timestamp"))
		assert.Empty(t, q.Get("tag"))
		_, _ = w.Write([]byte(`[{"type": "ExploitationEvent", "source": "a1", "timestamp": 1699999999.25, "tags": ["T1110"], "success": false}]`))
	})

	c, err := NewClient(srv.URL, Options{Token: "tok"})
	require.NoError(t, err)

	failed := false
	events, err := c.AgentEvents(context.Background(), EventFilter{
		Type:        "ExploitationEvent",
		Success:     &failed,
		TimestampOp: Before,
		Timestamp:   1700000000,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a1", events[0].Source)
	assert.Equal(t, int64(1699999999), events[0].Time().Unix())
}

func TestAgentEventsRejectsInvalidFilter(t *testing.T) {
	c, err := NewClient("https://island.lab:5000", Options{Token: "tok"})
	require.NoError(t, err)

	_, err = c.AgentEvents(context.Background(), EventFilter{Tag: "no spaces"})
	assert.Error(t, err)
}

package render

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/beat-puppet/internal/geom"
	"github.com/cybre/beat-puppet/internal/pose"
	"github.com/cybre/beat-puppet/internal/rig"
)

func samplePose() pose.Pose {
	return pose.Pose{
		Time:       1.25,
		Playing:    true,
		Pulse:      0.4,
		JumpHeight: 36,
		ScaleY:     1,
		Expression: pose.ExpressionHappy,
		Parts: []pose.PartPose{
			{Name: "body", Role: rig.RoleBody, Position: geom.Vec2{X: 640, Y: 350}},
			{
				Name:     "tail",
				Role:     rig.RoleTail,
				Position: geom.Vec2{X: 490, Y: 380},
				Angle:    0.9,
				Pivot:    geom.Vec2{X: 580, Y: 460},
				Size:     geom.Vec2{X: 90, Y: 140},
			},
		},
	}
}

type stubRenderer struct {
	calls int
	err   error
}

func (s *stubRenderer) Render(pose.Pose) error {
	s.calls++
	return s.err
}

func TestMultiRendersToAll(t *testing.T) {
	ok := &stubRenderer{}
	broken := &stubRenderer{err: eris.New("closed")}
	also := &stubRenderer{}

	err := Multi{ok, broken, also}.Render(samplePose())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 renderers failed")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, also.calls)

	assert.NoError(t, Multi{ok}.Render(samplePose()))
}

func TestLogRendererSamples(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewLogRenderer(logger, 3)

	for range 6 {
		require.NoError(t, r.Render(samplePose()))
	}
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=pose"))
	assert.Contains(t, out, "tail.angle=0.9")
	assert.Contains(t, out, "expression=happy")
}

func TestBroadcasterStreamsFrames(t *testing.T) {
	b := NewBroadcaster("session-1", slog.New(slog.NewTextHandler(io.Discard, nil)))
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return b.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Render(samplePose()))
	require.NoError(t, b.Render(samplePose()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first map[string]any
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "session-1", first["session"])
	assert.Equal(t, 1.0, first["seq"])
	assert.Equal(t, "happy", first["expression"])
	assert.Equal(t, true, first["playing"])

	parts, ok := first["parts"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	tail := parts[1].(map[string]any)
	assert.Equal(t, "tail", tail["name"])
	assert.Equal(t, "tail", tail["role"])
	assert.Equal(t, 0.9, tail["angle"])
	assert.Equal(t, map[string]any{"x": 580.0, "y": 460.0}, tail["pivot"])
	assert.Equal(t, 140.0, tail["size"].(map[string]any)["y"])

	var second map[string]any
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, 2.0, second["seq"])

	conn.Close()
	require.Eventually(t, func() bool { return b.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBroadcasterWithoutClients(t *testing.T) {
	b := NewBroadcaster("idle", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, b.Render(samplePose()))
	assert.Equal(t, 0, b.Clients())
	b.Close()
}

package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/pkg/logger"
	"dota-report-be/internal/querysession"
	"dota-report-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareClient(hub *Hub) *Client {
	return &Client{Hub: hub, ID: uuid.New(), Send: make(chan []byte, 8), logger: logger.NewNopLogger()}
}

func readFrame(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var f map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func TestHubPublishReachesRegisteredClients(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run()

	a, b := newBareClient(hub), newBareClient(hub)
	hub.register <- a
	hub.register <- b
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.NewReportEvent(events.ReportCompleted, "ws:x", "r1", "Hero")))

	for _, c := range []*Client{a, b} {
		f := readFrame(t, c)
		assert.Equal(t, "event", f["type"])
		assert.Equal(t, events.ReportCompleted, f["data"].(map[string]interface{})["type"])
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run()

	c := newBareClient(hub)
	hub.register <- c
	hub.unregister <- c

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.closed
	}, time.Second, 5*time.Millisecond)

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.False(t, c.send([]byte("late")), "sending after shutdown is refused")
	assert.Equal(t, 0, hub.ClientCount())
}

func TestFrameRenderer(t *testing.T) {
	c := newBareClient(nil)
	r := &frameRenderer{client: c}

	r.Notice(3, querysession.Notice{Kind: querysession.NoticeProcessing, Message: "Processing..."})
	f := readFrame(t, c)
	assert.Equal(t, "notice", f["type"])
	assert.Equal(t, float64(3), f["generation"])
	assert.Equal(t, "processing", f["data"].(map[string]interface{})["kind"])

	r.Progress(3, querysession.ProgressState{})
	f = readFrame(t, c)
	assert.NotContains(t, f["data"], "percentage")

	r.Progress(3, querysession.ProgressState{Current: 5, Total: 20, Percentage: 25, Known: true})
	f = readFrame(t, c)
	assert.Equal(t, float64(25), f["data"].(map[string]interface{})["percentage"])

	r.Render(3, &entity.Report{Id: "r1", Rows: [][]string{{"Axe"}}})
	f = readFrame(t, c)
	assert.Equal(t, "result", f["type"])
	assert.Equal(t, "r1", f["data"].(map[string]interface{})["id"])
}

func TestClientRoutesInboundMessagesToItsSession(t *testing.T) {
	backend := &recordingBackend{submitted: make(chan querysession.Parameters, 4)}
	factory := func(owner string, r querysession.Renderer) *querysession.Controller {
		backend.owner = owner
		return querysession.NewController(backend, r, querysession.Options{PollInitialDelay: time.Hour, PollInterval: time.Hour}, logger.NewNopLogger())
	}
	c := newClient(nil, nil, uuid.New(), factory, logger.NewNopLogger())
	defer c.shutdown()

	assert.Equal(t, "ws:"+c.ID.String(), backend.owner)

	require.NoError(t, c.handle(inbound{Type: "change", Field: "player", Value: "123"}))
	require.NoError(t, c.handle(inbound{Type: "change", Field: "hero", Value: "Axe"}))

	select {
	case p := <-backend.submitted:
		assert.Equal(t, "123", p.PlayerID)
		assert.Equal(t, "Axe", p.HeroName)
	case <-time.After(time.Second):
		t.Fatal("hero selection did not start a query")
	}

	assert.Error(t, c.handle(inbound{Type: "change", Field: "nickname", Value: "x"}))
	require.NoError(t, c.handle(inbound{Type: "bogus"}))

	var types []string
	for len(types) < 3 {
		types = append(types, readFrame(t, c)["type"].(string))
	}
	assert.ElementsMatch(t, []string{"notice", "result", "error"}, types)
}

type recordingBackend struct {
	owner     string
	submitted chan querysession.Parameters
}

func (b *recordingBackend) Submit(_ context.Context, params querysession.Parameters) (*entity.Report, error) {
	b.submitted <- params
	return &entity.Report{Id: "r1", Rows: [][]string{{"Bane"}}}, nil
}

func (b *recordingBackend) Cancel(context.Context) error { return nil }

func (b *recordingBackend) ResetCancel(context.Context) error { return nil }

func (b *recordingBackend) Progress(context.Context) (entity.Progress, error) {
	return entity.Progress{}, nil
}

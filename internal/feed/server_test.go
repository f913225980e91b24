package feed

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/model"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func morning() model.Snapshot {
	item := "c1"
	return model.Snapshot{
		Categories: []model.Category{{ID: "c1", Name: "朝の準備"}},
		Tasks:      []model.Task{{ID: "t1", CategoryID: "c1", Name: "月曜"}},
		CheckItems: []model.CheckItem{
			{ID: "i1", CategoryID: &item, Name: "着替え"},
			{ID: "i2", CategoryID: &item, Name: "朝食", SortPosition: 1},
		},
		TaskChecks: []model.TaskCheck{
			{ID: "k1", TaskID: "t1", CheckItemID: "i1", IsDone: true},
			{ID: "k2", TaskID: "t1", CheckItemID: "i2", SortPosition: 1},
		},
	}
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, server.Start())
	assert.NotEmpty(t, server.GetAddr())
	assert.NoError(t, server.Stop())
}

func TestHelloBeforeAnyState(t *testing.T) {
	server := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)
	msg := readMessage(t, ctx, conn)

	assert.Equal(t, MessageTypeHello, msg.Type)
	assert.Equal(t, 1, server.ClientCount())
}

func TestLatestStateReplayedOnConnect(t *testing.T) {
	server := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Publish(morning()))

	conn := dial(t, ctx, server)
	msg := readMessage(t, ctx, conn)
	require.Equal(t, MessageTypeState, msg.Type)

	var data StateData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Len(t, data.State.TaskChecks, 2)
	assert.Equal(t, model.StatusDoing, data.Statuses["t1"])
	assert.Equal(t, 1, data.Counts[model.StatusDoing])
}

func TestRunBroadcastsUpdates(t *testing.T) {
	server := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := []*websocket.Conn{dial(t, ctx, server), dial(t, ctx, server)}
	for _, conn := range conns {
		require.Equal(t, MessageTypeHello, readMessage(t, ctx, conn).Type)
	}
	assert.Equal(t, 2, server.ClientCount())

	updates := make(chan model.Snapshot, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Run(ctx, updates)
	}()

	snap := morning()
	snap.TaskChecks[1].IsDone = true
	updates <- snap

	for _, conn := range conns {
		msg := readMessage(t, ctx, conn)
		require.Equal(t, MessageTypeState, msg.Type)

		var data StateData
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, model.StatusDone, data.Statuses["t1"])
	}

	close(updates)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after updates closed")
	}
}

func TestClientsNeverSeeOlderState(t *testing.T) {
	server := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	version := func(n int) model.Snapshot {
		snap := morning()
		snap.Tasks[0].Name = strconv.Itoa(n)
		return snap
	}
	const last = 50

	published := make(chan struct{})
	go func() {
		defer close(published)
		for n := 0; n < last; n++ {
			_ = server.Publish(version(n))
			time.Sleep(time.Millisecond)
		}
	}()

	var conns []*websocket.Conn
	for i := 0; i < 4; i++ {
		conns = append(conns, dial(t, ctx, server))
	}
	<-published
	require.NoError(t, server.Publish(version(last)))

	for _, conn := range conns {
		seen := -1
		for seen != last {
			msg := readMessage(t, ctx, conn)
			if msg.Type != MessageTypeState {
				continue
			}
			var data StateData
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			n, err := strconv.Atoi(data.State.Tasks[0].Name)
			require.NoError(t, err)
			require.Greater(t, n, seen, "state %d arrived after %d", n, seen)
			seen = n
		}
	}
}

func TestDefaultsToLoopback(t *testing.T) {
	server := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	assert.Equal(t, "127.0.0.1:0", server.GetAddr())
}

func TestClientDisconnect(t *testing.T) {
	server := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	require.NoError(t, err)
	readMessage(t, ctx, conn)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	assert.Eventually(t, func() bool { return server.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	server := startServer(t)

	resp, err := http.Get("http://" + server.GetAddr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["clients"])
}

package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minelotto/lotto-client/internal/auth"
)

func testManagerConfig(url string) ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.WSURL = url
	cfg.ReconnectBaseWait = 10 * time.Millisecond
	cfg.ReconnectMaxWait = 100 * time.Millisecond
	return cfg
}

func TestManager_RequiresCredential(t *testing.T) {
	m := NewManager(testManagerConfig("ws://127.0.0.1:1"), nil, nil)
	if err := m.Start(context.Background()); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("Start err = %v, want ErrUnauthenticated", err)
	}

	m = NewManager(testManagerConfig("ws://127.0.0.1:1"), &auth.Credentials{}, nil)
	if err := m.Start(context.Background()); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("Start with empty token err = %v, want ErrUnauthenticated", err)
	}
}

func TestManager_EventForwarding(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"lotto:attempt","data":{"ticketId":"t1"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"lotto:block_mined","data":{"ticketId":"t1"}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), &auth.Credentials{Token: "tok"}, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop(context.Background())

	var events []string
	timeout := time.After(2 * time.Second)
	for len(events) < 2 {
		select {
		case env := <-m.Events():
			events = append(events, env.Event)
		case <-timeout:
			t.Fatalf("timed out, got events %v", events)
		}
	}

	if events[0] != EventTicketActivity || events[1] != EventBlockFound {
		t.Errorf("events = %v, want [lotto:attempt lotto:block_mined] (bad frame skipped)", events)
	}
}

func TestManager_StateListeners(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), &auth.Credentials{Token: "tok"}, nil)

	var mu sync.Mutex
	var transitions []bool
	m.OnStateChange(func(connected bool) {
		mu.Lock()
		transitions = append(transitions, connected)
		mu.Unlock()
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop(context.Background())

	mu.Lock()
	got := append([]bool(nil), transitions...)
	mu.Unlock()

	if len(got) != 1 || !got[0] {
		t.Errorf("transitions = %v, want [true]", got)
	}
	if !m.IsConnected() {
		t.Error("IsConnected = false after Start")
	}
}

func TestManager_RejoinsRoomsOnReconnect(t *testing.T) {
	var connCount atomic.Int64
	var mu sync.Mutex
	joinsByConn := make(map[int64][]string)

	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		id := connCount.Add(1)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var env Envelope
			if json.Unmarshal(data, &env) != nil || env.Event != EventJoin {
				continue
			}
			var room string
			json.Unmarshal(env.Data, &room)

			mu.Lock()
			joinsByConn[id] = append(joinsByConn[id], room)
			mu.Unlock()

			// Kill the first connection after its join arrives to force
			// a reconnect.
			if id == 1 {
				conn.Close()
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), &auth.Credentials{Token: "tok"}, nil)

	reconnected := make(chan struct{}, 4)
	m.OnStateChange(func(connected bool) {
		if connected {
			reconnected <- struct{}{}
		}
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop(context.Background())

	<-reconnected // initial connect

	if err := m.JoinRoom("entropy:req-1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	// The server closes connection 1 after the join; the manager must come
	// back and replay the room on connection 2.
	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("manager never reconnected")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		replayed := len(joinsByConn[2]) > 0 && joinsByConn[2][0] == "entropy:req-1"
		mu.Unlock()
		if replayed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	t.Fatalf("room not replayed on reconnect, joins = %v", joinsByConn)
}

func TestManager_LeaveRoomNotReplayed(t *testing.T) {
	var connCount atomic.Int64
	var mu sync.Mutex
	joinsByConn := make(map[int64][]string)
	closeFirst := make(chan struct{})

	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		id := connCount.Add(1)

		if id == 1 {
			go func() {
				<-closeFirst
				conn.Close()
			}()
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if json.Unmarshal(data, &env) != nil || env.Event != EventJoin {
				continue
			}
			var room string
			json.Unmarshal(env.Data, &room)
			mu.Lock()
			joinsByConn[id] = append(joinsByConn[id], room)
			mu.Unlock()
		}
	})
	defer server.Close()

	m := NewManager(testManagerConfig(wsURL(server)), &auth.Credentials{Token: "tok"}, nil)

	reconnected := make(chan struct{}, 4)
	m.OnStateChange(func(connected bool) {
		if connected {
			reconnected <- struct{}{}
		}
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop(context.Background())
	<-reconnected

	m.JoinRoom("entropy:req-1")
	m.JoinRoom("entropy:req-2")
	m.LeaveRoom("entropy:req-1")

	close(closeFirst)
	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("manager never reconnected")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		joins := append([]string(nil), joinsByConn[2]...)
		mu.Unlock()
		if len(joins) > 0 {
			if len(joins) != 1 || joins[0] != "entropy:req-2" {
				t.Fatalf("replayed joins = %v, want only entropy:req-2", joins)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no joins replayed on reconnect")
}

func TestManager_StopWhileEventBufferFull(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		for i := 0; i < 50; i++ {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"lotto:attempt","data":{}}`))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testManagerConfig(wsURL(server))
	cfg.EventBufferSize = 1

	m := NewManager(cfg, &auth.Credentials{Token: "tok"}, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Nobody drains Events, so the read loop fills the buffer and blocks
	// on its next send.
	time.Sleep(100 * time.Millisecond)

	// Stopping under an expired deadline must not close the events channel
	// out from under that blocked send.
	expired, cancel := context.WithCancel(context.Background())
	cancel()
	m.Stop(expired)

	// Drain whatever was buffered. A send on a closed channel here would
	// panic the read loop and fail the test binary.
	drainDeadline := time.After(500 * time.Millisecond)
	for draining := true; draining; {
		select {
		case _, ok := <-m.Events():
			if !ok {
				draining = false
			}
		case <-drainDeadline:
			draining = false
		}
	}

	// A second Stop with room to finish completes cleanly.
	ctx, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("final Stop failed: %v", err)
	}
}

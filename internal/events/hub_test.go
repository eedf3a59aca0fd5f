package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSubscribePublish(t *testing.T) {
	hub := NewHub()

	a, stopA := hub.Subscribe("a1")
	b, stopB := hub.Subscribe("a1")
	other, stopOther := hub.Subscribe("b2")
	defer stopB()
	defer stopOther()

	if hub.Subscribers("a1") != 2 {
		t.Errorf("Subscribers(a1) = %d, want 2", hub.Subscribers("a1"))
	}

	hub.Publish(Event{AnnouncementID: "a1", Stage: "resolving"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Stage != "resolving" || ev.Time.IsZero() {
				t.Errorf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	select {
	case ev := <-other:
		t.Errorf("event leaked to other announcement: %+v", ev)
	default:
	}

	stopA()
	stopA()
	if hub.Subscribers("a1") != 1 {
		t.Errorf("Subscribers(a1) after stop = %d, want 1", hub.Subscribers("a1"))
	}
}

func TestPublishDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, stop := hub.Subscribe("a1")
	defer stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*3; i++ {
			hub.Publish(Event{AnnouncementID: "a1", Stage: "resolving", Segment: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestTerminal(t *testing.T) {
	tests := map[string]bool{"done": true, "failed": true, "encoding": false, "": false}
	for stage, want := range tests {
		if got := (Event{Stage: stage}).Terminal(); got != want {
			t.Errorf("Terminal(%q) = %v, want %v", stage, got, want)
		}
	}
}

func TestServeWS(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "a1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("status = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("a1") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(Event{AnnouncementID: "a1", Stage: "encoding"})
	hub.Publish(Event{AnnouncementID: "a1", Stage: "done"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got []string
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		got = append(got, ev.Stage)
	}

	if len(got) != 2 || got[0] != "encoding" || got[1] != "done" {
		t.Errorf("received stages %v, want [encoding done]", got)
	}
}

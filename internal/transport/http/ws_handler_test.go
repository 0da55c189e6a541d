package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizhub-service/internal/session"
)

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func TestWebSocketAnswerFlow(t *testing.T) {
	server := newTestServer(t)
	api := server.URL + "/api/v1"

	var snap session.Snapshot
	if status := call(t, http.MethodPost, api+"/quizzes/quiz-1/attempts", "u1", nil, &snap); status != http.StatusCreated {
		t.Fatalf("start: status %d", status)
	}

	u := "ws" + strings.TrimPrefix(api, "http") + "/attempts/" + snap.AttemptID + "/ws"
	header := http.Header{}
	header.Set("X-User-ID", "u1")
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription opens with the current state.
	ev := readEvent(t, conn)
	if ev.Snapshot.State != session.StateInProgress {
		t.Fatalf("expected in-progress snapshot first, got %+v", ev)
	}

	send(t, conn, "submit", nil)
	env := readUntil(t, conn, "error")
	var errMsg errorPayload
	if err := json.Unmarshal(env.Payload, &errMsg); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if len(errMsg.Unanswered) != 2 {
		t.Fatalf("expected unanswered ids in error, got %+v", errMsg)
	}

	send(t, conn, "select", selectRequest{QuestionID: "q1", OptionID: "o2"})
	ev = readEventKind(t, conn, session.EventAnswer)
	if ev.Snapshot.AnsweredCount != 1 {
		t.Fatalf("expected one answered question, got %d", ev.Snapshot.AnsweredCount)
	}

	send(t, conn, "navigate", navigateRequest{Action: "jump", Index: 1})
	ev = readEventKind(t, conn, session.EventNavigate)
	if ev.Snapshot.CurrentIndex != 1 {
		t.Fatalf("expected index 1, got %d", ev.Snapshot.CurrentIndex)
	}

	send(t, conn, "select", selectRequest{QuestionID: "q2", OptionID: "o1"})
	readEventKind(t, conn, session.EventAnswer)
	send(t, conn, "submit", nil)
	ev = readEventKind(t, conn, session.EventSubmitted)
	if ev.Snapshot.Result == nil || ev.Snapshot.Result.CorrectCount != 1 {
		t.Fatalf("unexpected result %+v", ev.Snapshot.Result)
	}

	send(t, conn, "dance", nil)
	readUntil(t, conn, "error")

	// Discarding the attempt ends the stream.
	if status := call(t, http.MethodDelete, api+"/attempts/"+snap.AttemptID, "u1", nil, nil); status != http.StatusNoContent {
		t.Fatalf("discard: status %d", status)
	}
	readUntil(t, conn, "closed")
}

func TestWebSocketUnknownAttempt(t *testing.T) {
	server := newTestServer(t)
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/attempts/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %v", resp)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	var env wsEnvelope
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return env
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsEnvelope {
	t.Helper()
	for i := 0; i < 10; i++ {
		env := readNext(t, conn)
		if env.Type == typ {
			return env
		}
	}
	t.Fatalf("no %s message received", typ)
	return wsEnvelope{}
}

func readEvent(t *testing.T, conn *websocket.Conn) session.Event {
	t.Helper()
	env := readUntil(t, conn, "event")
	var ev session.Event
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func readEventKind(t *testing.T, conn *websocket.Conn, kind string) session.Event {
	t.Helper()
	for i := 0; i < 10; i++ {
		ev := readEvent(t, conn)
		if ev.Kind == kind {
			return ev
		}
	}
	t.Fatalf("no %s event received", kind)
	return session.Event{}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Corphon/AgenticVideoStudio/internal/models"
	"github.com/Corphon/AgenticVideoStudio/internal/services"
)

type serverMessage struct {
	Type  string          `json:"type"`
	Code  string          `json:"code"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

func dialSession(t *testing.T, server *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/session/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(serverMessage) bool) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func stateOf(t *testing.T, msg serverMessage) services.SessionSnapshot {
	t.Helper()
	var snap services.SessionSnapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return snap
}

func TestSessionWebSocketRejectsUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/session/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("dial to unknown session succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response=%v", resp)
	}
}

func TestSessionWebSocketPushesState(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	id := env.createSession(t).SessionID
	conn := dialSession(t, server, id)

	first := readUntil(t, conn, func(m serverMessage) bool { return m.Type == MessageTypeState })
	if snap := stateOf(t, first); snap.SessionID != id || snap.CanSubmit {
		t.Fatalf("unexpected initial state %#v", snap)
	}

	if err := conn.WriteJSON(map[string]string{"type": MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	readUntil(t, conn, func(m serverMessage) bool { return m.Type == MessageTypePong })

	briefing, _ := json.Marshal(seoBriefing())
	if err := conn.WriteJSON(ClientMessage{Type: MessageTypeUpdateBriefing, Data: briefing}); err != nil {
		t.Fatalf("write briefing: %v", err)
	}
	updated := readUntil(t, conn, func(m serverMessage) bool {
		return m.Type == MessageTypeState && stateOf(t, m).CanSubmit
	})
	if stateOf(t, updated).Briefing.Keyword != "SEO local" {
		t.Fatalf("briefing not applied")
	}

	invalid := seoBriefing()
	invalid.Format = "Podcast"
	payload, _ := json.Marshal(invalid)
	if err := conn.WriteJSON(ClientMessage{Type: MessageTypeUpdateBriefing, Data: payload}); err != nil {
		t.Fatalf("write invalid briefing: %v", err)
	}
	rejected := readUntil(t, conn, func(m serverMessage) bool { return m.Type == MessageTypeError })
	if rejected.Code != ErrorBriefingInvalid || !strings.Contains(rejected.Error, "format") {
		t.Fatalf("unexpected error message %#v", rejected)
	}

	if err := conn.WriteJSON(map[string]string{"type": "dance"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	unknown := readUntil(t, conn, func(m serverMessage) bool { return m.Type == MessageTypeError })
	if unknown.Code != ErrorBadRequest {
		t.Fatalf("unexpected error code %q", unknown.Code)
	}
}

func TestSessionWebSocketFollowsRun(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	id := env.readySession(t)
	conn := dialSession(t, server, id)
	readUntil(t, conn, func(m serverMessage) bool { return m.Type == MessageTypeState })

	if w, _ := env.do(t, http.MethodPost, "/api/sessions/"+id+"/run", nil); w.Code != http.StatusAccepted {
		t.Fatalf("run status=%d", w.Code)
	}

	env.finishRun(t, id)

	final := readUntil(t, conn, func(m serverMessage) bool {
		return m.Type == MessageTypeState && stateOf(t, m).Result != nil
	})
	snap := stateOf(t, final)
	if snap.IsRunning || len(snap.Result.Scenes) != 5 {
		t.Fatalf("unexpected final state %#v", snap)
	}
	for _, step := range snap.Steps {
		if step.Status != models.StepDone {
			t.Fatalf("step %s status %s", step.ID, step.Status)
		}
	}

	w, res := env.do(t, http.MethodGet, "/api/ws/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ws status=%d", w.Code)
	}
	var ws map[string]interface{}
	if err := json.Unmarshal(res.Data, &ws); err != nil {
		t.Fatalf("decode ws status: %v", err)
	}
	if ws["total_connections"].(float64) != 1 {
		t.Fatalf("ws status %#v", ws)
	}
}

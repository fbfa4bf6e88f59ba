package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"talent-assessment-service/internal/app"
	"talent-assessment-service/internal/domain"
)

func TestWebSocketExamFlow(t *testing.T) {
	server, manager := newTestServer(t, &stubGenerator{}, ExamOptions{Tick: time.Hour})
	session, err := manager.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	conn := dialExam(t, server.URL, "/exam/"+session.ID)

	typ, payload := readNext(t, conn)
	if typ != "exam" || payload["phase"] != string(app.PhaseConsent) {
		t.Fatalf("expected consent view, got %s %v", typ, payload)
	}

	send(t, conn, "answer", map[string]any{"questionId": "q1", "text": "early"})
	if typ, payload := readNext(t, conn); typ != "error" || payload["code"] != "invalid_transition" {
		t.Fatalf("expected answer before consent to fail, got %s %v", typ, payload)
	}

	send(t, conn, "consent", nil)
	typ, payload = readNext(t, conn)
	if typ != "exam" || payload["phase"] != string(app.PhaseInProgress) {
		t.Fatalf("expected exam in progress, got %s %v", typ, payload)
	}
	question, _ := payload["question"].(map[string]any)
	if question["id"] != "q1" {
		t.Fatalf("expected first question, got %v", question)
	}
	if _, leaked := question["logicExplanation"]; leaked {
		t.Fatalf("rationale must not reach the candidate")
	}

	send(t, conn, "answer", map[string]any{"questionId": "q1", "text": "Posting keys drive the ledger."})
	readExpect(t, conn, "exam")
	send(t, conn, "submit", nil)
	if typ, payload := readNext(t, conn); typ != "error" || payload["code"] != "not_at_last_question" {
		t.Fatalf("expected submit to require the last question, got %s %v", typ, payload)
	}
	send(t, conn, "next", nil)
	readExpect(t, conn, "exam")
	send(t, conn, "answer", map[string]any{"questionId": "q2", "text": "C"})
	if typ, payload := readNext(t, conn); typ != "error" || payload["code"] != "invalid_option" {
		t.Fatalf("expected invalid option, got %s %v", typ, payload)
	}
	send(t, conn, "answer", map[string]any{"questionId": "q2", "text": "B"})
	readExpect(t, conn, "exam")
	send(t, conn, "submit", nil)
	typ, payload = readNext(t, conn)
	if typ != "finished" || payload["phase"] != string(app.PhaseFinished) {
		t.Fatalf("expected finished, got %s %v", typ, payload)
	}

	stored, err := manager.Get(session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusCompleted || stored.Answers["q2"] != "B" || *stored.Score != 70 {
		t.Fatalf("unexpected stored session %+v", stored)
	}
}

func TestWebSocketAutoSubmit(t *testing.T) {
	server, manager := newTestServer(t, &stubGenerator{}, ExamOptions{
		Config: app.ExamConfig{Duration: time.Second, AutoSubmitOnExpiry: true},
		Tick:   50 * time.Millisecond,
	})
	session, err := manager.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	conn := dialExam(t, server.URL, "#/exam/"+session.ID)
	readExpect(t, conn, "exam")
	send(t, conn, "consent", nil)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		typ, _ := readNext(t, conn)
		if typ == "finished" {
			stored, _ := manager.Get(session.ID)
			if stored.Status != domain.StatusCompleted {
				t.Fatalf("expected session completed, got %s", stored.Status)
			}
			return
		}
	}
	t.Fatalf("exam was not auto-submitted")
}

func TestWebSocketRejectsUnknownLocator(t *testing.T) {
	server, _ := newTestServer(t, &stubGenerator{}, ExamOptions{})

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/exam?locator=/exam/missing"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func dialExam(t *testing.T, serverURL, locator string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/exam?locator=" + strings.ReplaceAll(locator, "#", "%23")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readExpect(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	typ, payload := readNext(t, conn)
	if typ != expect {
		t.Fatalf("expected %s, got %s %v", expect, typ, payload)
	}
	return payload
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}

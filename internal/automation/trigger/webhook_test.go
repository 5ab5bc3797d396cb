package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

func webhookURL(b automation.Binding, path string) string {
	return fmt.Sprintf("http://%s%s", b.(*WebhookBinding).Addr().String(), path)
}

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body)) //nolint:noctx // test request
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out) //nolint:errcheck // body checked by caller
	return resp.StatusCode, out
}

func TestWebhook_Dispatch(t *testing.T) {
	w := NewWebhook("127.0.0.1", nil)
	fire, ch := collector()
	b := bindOrFatal(t, w, automationWith("hook1", automation.Spec{"type": "webhook", "port": 0, "path": "/deploy"}), fire)

	status, out := postJSON(t, webhookURL(b, "/deploy?env=prod"), `{"ref":"main"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if out["success"] != true || out["automationId"] != "hook1" {
		t.Errorf("response = %v", out)
	}

	ec := waitFire(t, ch)
	if ec.Trigger != "webhook" {
		t.Errorf("Trigger = %q, want webhook", ec.Trigger)
	}
	body, _ := ec.Data["body"].(map[string]any)
	if body["ref"] != "main" {
		t.Errorf("body = %v", ec.Data["body"])
	}
	query, _ := ec.Data["query"].(map[string]any)
	if query["env"] != "prod" {
		t.Errorf("query = %v", ec.Data["query"])
	}
	if ec.Data["path"] != "/deploy" {
		t.Errorf("path = %v", ec.Data["path"])
	}
}

func TestWebhook_EmptyBody(t *testing.T) {
	w := NewWebhook("127.0.0.1", nil)
	fire, ch := collector()
	b := bindOrFatal(t, w, automationWith("hook1", automation.Spec{"type": "webhook", "port": 0, "path": "hook"}), fire)

	if status, _ := postJSON(t, webhookURL(b, "/hook"), ""); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	ec := waitFire(t, ch)
	if body, ok := ec.Data["body"].(map[string]any); !ok || len(body) != 0 {
		t.Errorf("body = %#v, want empty object", ec.Data["body"])
	}
}

func TestWebhook_Rejections(t *testing.T) {
	w := NewWebhook("127.0.0.1", nil)
	fire, _ := collector()
	b := bindOrFatal(t, w, automationWith("hook1", automation.Spec{"type": "webhook", "port": 0, "path": "/deploy"}), fire)

	t.Run("get is not found", func(t *testing.T) {
		resp, err := http.Get(webhookURL(b, "/deploy")) //nolint:noctx // test request
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("unknown path is not found", func(t *testing.T) {
		if status, _ := postJSON(t, webhookURL(b, "/other"), "{}"); status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", status)
		}
	})

	t.Run("invalid json is bad request", func(t *testing.T) {
		status, out := postJSON(t, webhookURL(b, "/deploy"), "{not json")
		if status != http.StatusBadRequest || out["error"] == nil {
			t.Errorf("status = %d body = %v, want 400 with error", status, out)
		}
	})
}

func TestWebhook_RunFailureIsBadRequest(t *testing.T) {
	w := NewWebhook("127.0.0.1", nil)
	failing := func(automation.ExecutionContext) (*automation.Result, error) {
		return nil, errors.New("action 0 (shell): exit status 1")
	}
	b := bindOrFatal(t, w, automationWith("hook1", automation.Spec{"type": "webhook", "port": 0, "path": "/x"}), failing)

	status, out := postJSON(t, webhookURL(b, "/x"), "{}")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if !strings.Contains(fmt.Sprint(out["error"]), "exit status 1") {
		t.Errorf("error = %v", out["error"])
	}
}

func TestWebhook_SharedPort(t *testing.T) {
	w := NewWebhook("127.0.0.1", nil)
	fireA, chA := collector()
	fireB, chB := collector()

	first := bindOrFatal(t, w, automationWith("a", automation.Spec{"type": "webhook", "port": 0, "path": "/a"}), fireA)
	actualPort := first.(*WebhookBinding).l.port

	second, err := w.Bind(t.Context(), automationWith("b", automation.Spec{"type": "webhook", "port": actualPort, "path": "/b"}), fireB)
	if err != nil {
		t.Fatalf("second Bind() error = %v", err)
	}
	if n := w.ListenerCount(); n != 1 {
		t.Errorf("ListenerCount() = %d, want 1", n)
	}

	_, err = w.Bind(t.Context(), automationWith("c", automation.Spec{"type": "webhook", "port": actualPort, "path": "/a"}), fireB)
	if !errors.Is(err, ErrWebhookPathInUse) {
		t.Errorf("duplicate Bind() error = %v, want ErrWebhookPathInUse", err)
	}

	postJSON(t, webhookURL(first, "/a"), "{}")
	postJSON(t, webhookURL(first, "/b"), "{}")
	if ec := waitFire(t, chA); ec.Data["path"] != "/a" {
		t.Errorf("a fired with path %v", ec.Data["path"])
	}
	if ec := waitFire(t, chB); ec.Data["path"] != "/b" {
		t.Errorf("b fired with path %v", ec.Data["path"])
	}

	if err := second.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := w.ListenerCount(); n != 1 {
		t.Errorf("ListenerCount() after first release = %d, want 1", n)
	}
	if status, _ := postJSON(t, webhookURL(first, "/b"), "{}"); status != http.StatusNotFound {
		t.Errorf("released path status = %d, want 404", status)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := w.ListenerCount(); n != 0 {
		t.Errorf("ListenerCount() after last release = %d, want 0", n)
	}
}

func TestWebhook_InvalidPort(t *testing.T) {
	w := NewWebhook("127.0.0.1", nil)
	fire, _ := collector()

	_, err := w.Bind(t.Context(), automationWith("a", automation.Spec{"type": "webhook", "path": "/a"}), fire)
	if !errors.Is(err, ErrInvalidWebhook) {
		t.Errorf("Bind() error = %v, want ErrInvalidWebhook", err)
	}
}

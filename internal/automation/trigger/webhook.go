package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

const (
	maxWebhookBody           = 1 << 20 // 1 MB
	webhookReadTimeout       = 30 * time.Second
	webhookShutdownTimeout   = 5 * time.Second
	webhookReadHeaderTimeout = 10 * time.Second
)

// Webhook dispatches HTTP POSTs to automations.
//
// Spec: {"type":"webhook","port":9000,"path":"/deploy"}
//
// All automations on the same port share one listener and are keyed by
// exact path. Only POST dispatches; every other request gets 404. Port 0
// allocates a private ephemeral listener (tests).
type Webhook struct {
	host   string
	logger automation.Logger

	mu        sync.Mutex
	listeners map[int]*webhookListener
}

// NewWebhook creates a webhook trigger binding listeners on host.
func NewWebhook(host string, logger automation.Logger) *Webhook {
	return &Webhook{
		host:      host,
		logger:    loggerOr(logger),
		listeners: make(map[int]*webhookListener),
	}
}

type webhookRoute struct {
	automationID string
	fire         automation.FireFunc
}

type webhookListener struct {
	port   int
	ln     net.Listener
	server *http.Server

	mu     sync.RWMutex
	routes map[string]webhookRoute
}

// WebhookBinding is the live registration of one path on a listener.
type WebhookBinding struct {
	w    *Webhook
	l    *webhookListener
	path string
	once sync.Once
}

// Addr returns the listener's bound address.
func (b *WebhookBinding) Addr() net.Addr { return b.l.ln.Addr() }

// Path returns the registered path.
func (b *WebhookBinding) Path() string { return b.path }

// Close removes the path and shuts the listener down when it was the last one.
func (b *WebhookBinding) Close() error {
	var err error
	b.once.Do(func() { err = b.w.release(b.l, b.path) })
	return err
}

// Bind registers a's path on the listener for its port, starting the
// listener if needed.
func (w *Webhook) Bind(_ context.Context, a *automation.Automation, fire automation.FireFunc) (automation.Binding, error) {
	port := a.Trigger.Int("port", -1)
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port must be between 0 and 65535", ErrInvalidWebhook)
	}
	path := normalizePath(a.Trigger.String("path"))

	w.mu.Lock()
	defer w.mu.Unlock()

	l, ok := w.listeners[port]
	if !ok {
		var err error
		if l, err = w.listen(port); err != nil {
			return nil, err
		}
		w.listeners[l.port] = l
	}

	l.mu.Lock()
	if existing, taken := l.routes[path]; taken {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: port %d path %s (automation %s)", ErrWebhookPathInUse, l.port, path, existing.automationID)
	}
	l.routes[path] = webhookRoute{automationID: a.ID, fire: fire}
	l.mu.Unlock()

	w.logger.Info("webhook registered", "automation_id", a.ID, "port", l.port, "path", path)
	return &WebhookBinding{w: w, l: l, path: path}, nil
}

func (w *Webhook) listen(port int) (*webhookListener, error) {
	addr := net.JoinHostPort(w.host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	l := &webhookListener{
		port:   ln.Addr().(*net.TCPAddr).Port,
		ln:     ln,
		routes: make(map[string]webhookRoute),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, http.StatusNotFound, map[string]any{"error": "not found"})
	})
	r.MethodNotAllowed(func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, http.StatusNotFound, map[string]any{"error": "not found"})
	})
	r.Post("/*", l.dispatch)

	l.server = &http.Server{
		Handler:           r,
		ReadTimeout:       webhookReadTimeout,
		ReadHeaderTimeout: webhookReadHeaderTimeout,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("webhook listener error", "port", l.port, "error", err)
		}
	}()

	w.logger.Info("webhook listener started", "address", ln.Addr().String())
	return l, nil
}

func (w *Webhook) release(l *webhookListener, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	l.mu.Lock()
	delete(l.routes, path)
	empty := len(l.routes) == 0
	l.mu.Unlock()

	w.logger.Info("webhook removed", "port", l.port, "path", path)
	if !empty {
		return nil
	}
	return w.shutdown(l)
}

// shutdown stops l and forgets it. Callers hold w.mu.
func (w *Webhook) shutdown(l *webhookListener) error {
	if cur, ok := w.listeners[l.port]; ok && cur == l {
		delete(w.listeners, l.port)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("stopping webhook listener on port %d: %w", l.port, err)
	}
	w.logger.Info("webhook listener stopped", "port", l.port)
	return nil
}

// ListenerCount returns the number of open listeners.
func (w *Webhook) ListenerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

func (l *webhookListener) dispatch(rw http.ResponseWriter, r *http.Request) {
	l.mu.RLock()
	route, ok := l.routes[r.URL.Path]
	l.mu.RUnlock()
	if !ok {
		writeJSON(rw, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}

	body, err := decodeBody(rw, r)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	ec := automation.ExecutionContext{
		Trigger:   "webhook",
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"body":    body,
			"headers": flattenHeader(r.Header),
			"query":   flattenValues(r.URL.Query()),
			"path":    r.URL.Path,
		},
	}

	if _, err := route.fire(ec); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"success": true, "automationId": route.automationID})
}

func decodeBody(rw http.ResponseWriter, r *http.Request) (any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxWebhookBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, nil
	}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return body, nil
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func flattenHeader(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

func flattenValues(v map[string][]string) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		if len(vals) == 1 {
			out[k] = vals[0]
			continue
		}
		list := make([]any, len(vals))
		for i, s := range vals {
			list[i] = s
		}
		out[k] = list
	}
	return out
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v) //nolint:errcheck // best effort response
}

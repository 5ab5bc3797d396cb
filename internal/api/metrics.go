package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	MQTT          *MQTTMetrics      `json:"mqtt,omitempty"`
	Automations   AutomationMetrics `json:"automations"`
	Database      *DatabaseMetrics  `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected     bool `json:"connected"`
	Subscriptions int  `json:"subscriptions"`
}

// AutomationMetrics summarises the engine's loaded definitions.
type AutomationMetrics struct {
	Total     int            `json:"total"`
	Enabled   int            `json:"enabled"`
	Bound     int            `json:"bound"`
	Running   int            `json:"running"`
	ByTrigger map[string]int `json:"by_trigger"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime, engine and connection metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Automations: s.automationMetrics(),
	}

	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{
			Connected:     s.mqtt.IsConnected(),
			Subscriptions: s.mqtt.SubscriptionCount(),
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) automationMetrics() AutomationMetrics {
	m := AutomationMetrics{ByTrigger: make(map[string]int)}
	for _, a := range s.engine.List() {
		m.Total++
		m.ByTrigger[a.Trigger.Type()]++
		if a.Enabled {
			m.Enabled++
		}
		if s.engine.IsBound(a.ID) {
			m.Bound++
		}
		if s.engine.IsRunning(a.ID) {
			m.Running++
		}
	}
	return m
}

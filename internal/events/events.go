// Package events provides lifecycle event notifications for the server,
// the worker pool, and benchmark runs.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventServerStart is emitted when the HTTP server begins accepting connections
	EventServerStart EventType = "server_start"
	// EventServerStop is emitted after the server has drained its pool and stopped
	EventServerStop EventType = "server_stop"
	// EventWorkerCrash is emitted when a job panic permanently terminates a pool worker
	EventWorkerCrash EventType = "worker_crash"
	// EventBenchComplete is emitted when a benchmark run finishes
	EventBenchComplete EventType = "bench_complete"
)

// Event represents a single lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Addr     string `json:"addr,omitempty"`
	WorkerID int    `json:"worker_id,omitempty"`
	Error    string `json:"error,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	Requests uint64 `json:"requests,omitempty"`
}

// NewServerStartEvent creates a server start event
func NewServerStartEvent(addr string) Event {
	return Event{
		Type:      EventServerStart,
		Timestamp: time.Now(),
		Data:      EventData{Addr: addr},
	}
}

// NewServerStopEvent creates a server stop event
func NewServerStopEvent(addr string) Event {
	return Event{
		Type:      EventServerStop,
		Timestamp: time.Now(),
		Data:      EventData{Addr: addr},
	}
}

// NewWorkerCrashEvent creates a worker crash event
func NewWorkerCrashEvent(workerID int, cause string) Event {
	return Event{
		Type:      EventWorkerCrash,
		Timestamp: time.Now(),
		Data:      EventData{WorkerID: workerID, Error: cause},
	}
}

// NewBenchCompleteEvent creates a benchmark completion event
func NewBenchCompleteEvent(runID string, requests uint64) Event {
	return Event{
		Type:      EventBenchComplete,
		Timestamp: time.Now(),
		Data:      EventData{RunID: runID, Requests: requests},
	}
}

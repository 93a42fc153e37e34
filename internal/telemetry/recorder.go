package telemetry

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Recorder receives lifecycle events (room entry, quality tier changes)
// for an out-of-scope collector. Implementations must be cheap: they are
// called from the frame path.
type Recorder interface {
	RecordEvent(name string, fields map[string]any)
}

// NopRecorder discards every event.
type NopRecorder struct{}

// RecordEvent implements Recorder.
func (NopRecorder) RecordEvent(string, map[string]any) {}

// LogRecorder writes events to the standard logger.
type LogRecorder struct{}

// RecordEvent implements Recorder.
func (LogRecorder) RecordEvent(name string, fields map[string]any) {
	if len(fields) == 0 {
		log.Printf("[Telemetry] %s", name)
		return
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, fields[key]))
	}
	log.Printf("[Telemetry] %s %s", name, strings.Join(parts, " "))
}

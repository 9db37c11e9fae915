// Package history holds the immutable historical telemetry of the tracked
// stations. Rows are kept sorted by timestamp and indexed by station so the
// aggregator and the tick simulator can query them without copying the
// whole table.
package history

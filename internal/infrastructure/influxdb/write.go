package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCommandMetric records the outcome of one executed command.
//
// This is the highest-frequency metric: one point per dispatched command.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - kind: The classified command kind (e.g., "regular", "wait", "multizone")
//   - durationMS: Wall-clock execution time in milliseconds
//   - success: Whether the command completed successfully
func (c *Client) WriteCommandMetric(kind string, durationMS float64, success bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command_execution",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"duration_ms": durationMS,
			"success":     success,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteExecutionMetric records the outcome of a whole sequence run.
//
// Parameters:
//   - source: The sequence or button name that produced the run
//   - status: Terminal status ("completed", "failed", "cancelled")
//   - commandsTotal: Number of commands in the expanded run
//   - durationMS: Total run time in milliseconds
func (c *Client) WriteExecutionMetric(source string, status string, commandsTotal int, durationMS float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sequence_execution",
		map[string]string{
			"source": source,
			"status": status,
		},
		map[string]interface{}{
			"commands_total": commandsTotal,
			"duration_ms":    durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCacheMetric records hit/miss counters for one result cache.
//
// Parameters:
//   - cache: Cache name ("validate", "expand", "search")
//   - hits: Cumulative hit count
//   - misses: Cumulative miss count
//   - size: Current entry count
func (c *Client) WriteCacheMetric(cache string, hits, misses, size int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"cache_stats",
		map[string]string{
			"cache": cache,
		},
		map[string]interface{}{
			"hits":   hits,
			"misses": misses,
			"size":   size,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteZoneMetric records a zone status transition during fan-out.
//
// Parameters:
//   - zoneID: Zone number (1-4)
//   - status: New status ("executing", "completed", "error")
func (c *Client) WriteZoneMetric(zoneID int, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"zone_status",
		map[string]string{
			"zone":   strconv.Itoa(zoneID),
			"status": status,
		},
		map[string]interface{}{
			"value": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "sequencer-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

package sequence

import (
	"context"
	"strings"
	"sync"
	"time"
)

// maxResponseLines bounds the collector's buffer. A chatty device
// cannot grow memory without bound; the oldest lines are dropped.
const maxResponseLines = 256

// AckResult classifies a device acknowledgement.
type AckResult int

const (
	// AckSuccess means a success keyword was seen.
	AckSuccess AckResult = iota

	// AckError means an error keyword was seen.
	AckError

	// AckTimeout means no recognisable acknowledgement arrived in time.
	AckTimeout
)

// String returns the result's wire name.
func (r AckResult) String() string {
	switch r {
	case AckSuccess:
		return "success"
	case AckError:
		return "error"
	case AckTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// AckClassifier matches response lines against keyword lists.
//
// A line acknowledges success when it contains any success keyword and
// failure when it contains any error keyword, case-insensitively.
// Error keywords win when a line contains both.
type AckClassifier struct {
	success []string
	errors  []string
}

// NewAckClassifier creates a classifier from keyword lists. Keywords
// are matched as substrings, case-insensitively.
func NewAckClassifier(successKeywords, errorKeywords []string) *AckClassifier {
	return &AckClassifier{
		success: lowerAll(successKeywords),
		errors:  lowerAll(errorKeywords),
	}
}

// Classify inspects one response line.
//
// Returns:
//   - AckResult: AckError or AckSuccess when a keyword matched
//   - bool: False when the line matched no keyword
func (a *AckClassifier) Classify(line string) (AckResult, bool) {
	lower := strings.ToLower(line)
	for _, keyword := range a.errors {
		if strings.Contains(lower, keyword) {
			return AckError, true
		}
	}
	for _, keyword := range a.success {
		if strings.Contains(lower, keyword) {
			return AckSuccess, true
		}
	}
	return AckTimeout, false
}

// ResponseCollector accumulates device response lines and lets the
// executor wait for an acknowledgement among them.
//
// The transport feeds lines in via Add from its receive goroutine; the
// executor clears the buffer before each send and then awaits a line
// the classifier recognises.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type ResponseCollector struct {
	mu     sync.Mutex
	lines  []string
	notify chan struct{}
}

// NewResponseCollector creates an empty collector.
func NewResponseCollector() *ResponseCollector {
	return &ResponseCollector{notify: make(chan struct{}, 1)}
}

// Add appends a response line, dropping the oldest if the buffer is full.
func (rc *ResponseCollector) Add(line string) {
	rc.mu.Lock()
	if len(rc.lines) >= maxResponseLines {
		rc.lines = rc.lines[1:]
	}
	rc.lines = append(rc.lines, line)
	rc.mu.Unlock()

	select {
	case rc.notify <- struct{}{}:
	default:
	}
}

// Clear empties the buffer. Called before each send so stale lines
// cannot acknowledge the wrong command.
func (rc *ResponseCollector) Clear() {
	rc.mu.Lock()
	rc.lines = rc.lines[:0]
	rc.mu.Unlock()
}

// Lines returns a snapshot of the buffered lines.
func (rc *ResponseCollector) Lines() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return copyCommands(rc.lines)
}

// AwaitAck blocks until a buffered line matches the classifier, the
// timeout expires, cancellation fires, or the context ends.
//
// Parameters:
//   - ctx: Bounds the overall wait
//   - cancelled: Run cancellation channel; closing it aborts the wait
//   - classifier: Keyword matcher for acknowledgement lines
//   - timeout: How long to wait for a recognisable line
//
// Returns:
//   - AckResult: AckSuccess, AckError or AckTimeout
//   - string: The matched line, empty on timeout or abort
//   - error: ErrCancelled on cancellation, ctx.Err() on context end
func (rc *ResponseCollector) AwaitAck(ctx context.Context, cancelled <-chan struct{}, classifier *AckClassifier, timeout time.Duration) (AckResult, string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	scanned := 0
	for {
		rc.mu.Lock()
		if scanned > len(rc.lines) {
			// Buffer was cleared mid-wait; rescan from the start.
			scanned = 0
		}
		for ; scanned < len(rc.lines); scanned++ {
			if result, ok := classifier.Classify(rc.lines[scanned]); ok {
				line := rc.lines[scanned]
				rc.mu.Unlock()
				return result, line, nil
			}
		}
		rc.mu.Unlock()

		select {
		case <-ctx.Done():
			return AckTimeout, "", ctx.Err()
		case <-cancelled:
			return AckTimeout, "", ErrCancelled
		case <-timer.C:
			return AckTimeout, "", nil
		case <-rc.notify:
		}
	}
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			out = append(out, keyword)
		}
	}
	return out
}

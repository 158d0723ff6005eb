package github

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// ParseLogLine classifies one actions/runner output line. The matcher
// is stateless: it pattern-matches vocabulary only and does not enforce
// the conceptual ready → job_started → job_ended ordering.
func (c *Client) ParseLogLine(line []byte) *driver.LogEvent {
	if !utf8.Valid(line) {
		c.log.Debug("Skipping non-UTF8 runner output line")
		return nil
	}

	text := strings.TrimSpace(string(line))
	event := driver.LogEvent{
		Level: driver.LevelInfo,
		Time:  time.Now(),
		Repo:  c.Repo(),
	}

	switch {
	case strings.Contains(text, "Running job"):
		event.Status = driver.StatusJobStarted
		event.Job = jobName(text, "Running job:")

	case strings.Contains(text, "Job ") && strings.Contains(text, "completed with result"):
		event.Status = driver.StatusJobEnded
		success := strings.HasSuffix(text, "Succeeded")
		event.Success = &success
		if !success {
			event.Level = driver.LevelError
		}

	case strings.Contains(text, "Listening for Jobs"):
		event.Status = driver.StatusReady

	default:
		return nil
	}

	return &event
}

// jobName extracts the text after marker, if present.
func jobName(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+len(marker):])
}

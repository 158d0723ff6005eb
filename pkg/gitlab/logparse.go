package gitlab

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jeffail/gabs"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// ParseLogLine classifies one gitlab-runner structured log line. The
// runner logs JSON per line; anything that is not valid JSON (or not
// UTF-8) is logged and dropped, never raised: the contract is
// best-effort observability.
func (c *Client) ParseLogLine(line []byte) *driver.LogEvent {
	if !utf8.Valid(line) {
		c.log.Debug("Skipping non-UTF8 runner output line")
		return nil
	}

	parsed, err := gabs.ParseJSON(line)
	if err != nil {
		c.log.Debug("Skipping non-JSON runner output line")
		return nil
	}

	msg, ok := parsed.Path("msg").Data().(string)
	if !ok {
		return nil
	}

	event := driver.LogEvent{
		Level: driver.LevelInfo,
		Time:  time.Now(),
		Repo:  c.projectPath,
		Job:   jobField(parsed),
	}

	switch {
	case strings.HasSuffix(msg, "received"):
		event.Status = driver.StatusJobStarted

	case strings.HasPrefix(msg, "Job failed"), strings.HasPrefix(msg, "Job succeeded"):
		event.Status = driver.StatusJobEnded
		success := !strings.HasPrefix(msg, "Job failed")
		event.Success = &success
		if !success {
			event.Level = driver.LevelError
		}

	case strings.Contains(msg, "Starting runner for"):
		event.Status = driver.StatusReady

	default:
		return nil
	}

	return &event
}

// jobField renders the numeric or string "job" field, if any.
func jobField(parsed *gabs.Container) string {
	switch v := parsed.Path("job").Data().(type) {
	case float64:
		return fmt.Sprintf("%.0f", v)
	case string:
		return v
	default:
		return ""
	}
}

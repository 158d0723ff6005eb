package runner

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/sgaunet/bullets"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

const eventBuffer = 64

// Spawn launches cmd detached from the caller's lifecycle and scans its
// combined output through parse, one line at a time. The returned
// handle carries the process, an exit notification channel and the
// normalized event stream. The core does not manage the process after
// spawn; callers may supervise it or walk away.
//
// Event delivery is lossy by contract: lines parse cannot classify are
// dropped, and a full event buffer drops rather than blocks the scan.
func Spawn(cmd *exec.Cmd, parse func([]byte) *driver.LogEvent, log *bullets.Logger) (*driver.RunnerProcess, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed preparing runner: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed preparing runner: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed preparing runner: %w", err)
	}

	events := make(chan driver.LogEvent, eventBuffer)
	done := make(chan error, 1)

	var scanners sync.WaitGroup
	for _, pipe := range []io.Reader{stdout, stderr} {
		scanners.Add(1)
		go func(r io.Reader) {
			defer scanners.Done()
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				line := scanner.Bytes()
				log.Debug("runner: " + string(line))
				event := parse(line)
				if event == nil {
					continue
				}
				select {
				case events <- *event:
				default:
					// Nobody is draining; best-effort observability only.
				}
			}
		}(pipe)
	}

	go func() {
		scanners.Wait()
		close(events)
		done <- cmd.Wait()
		close(done)
	}()

	return &driver.RunnerProcess{Cmd: cmd, Done: done, Events: events}, nil
}

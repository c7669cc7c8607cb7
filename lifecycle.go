package netsnitch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/netsnitch/netsnitch/config"
	"github.com/netsnitch/netsnitch/internal/conn"
	"github.com/netsnitch/netsnitch/internal/logging"
)

const mainLogFile = "netsnitch.log"

// Init resolves configuration, creates this run's numbered logs directory,
// and brings the engine into the Initialized state. It is idempotent: a
// second call while already Initialized is a no-op, matching
// init_tcpsnitch's `if (initialized) goto exit`.
func Init() error {
	return defaultEngine.Init()
}

func (e *Engine) Init() error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.state == Initialized {
		return nil
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("netsnitch: init: %w", err)
	}

	logsDir, err := createLogsDir(cfg.LogsRoot)
	if err != nil {
		return fmt.Errorf("netsnitch: init: %w", err)
	}

	logger, err := logging.New(cfg, filepath.Join(logsDir, mainLogFile))
	if err != nil {
		return fmt.Errorf("netsnitch: init: %w", err)
	}

	e.cfg = cfg
	e.logsDir = logsDir
	e.logger = logger
	e.state = Initialized
	return nil
}

// createLogsDir finds the first unused root/N directory (N starting at 0)
// and creates it, mirroring the original's create_logs_dir loop that probes
// opendir() until it hits ENOENT.
func createLogsDir(root string) (string, error) {
	for n := 0; ; n++ {
		candidate := filepath.Join(root, fmt.Sprintf("%d", n))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.Mkdir(candidate, 0777); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", candidate, err)
			}
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
}

// ResetAfterFork drops all tracked connections without running their
// destructors (no final JSON flush, no capture session teardown) and resets
// the engine to Uninitialized, so a subsequent Init starts clean. Call this
// in the child immediately after fork(), before any traced call runs in it.
//
// Both processes otherwise share the same registry, numbered connection ids
// and logs directory, which would interleave their JSON event streams and
// let whichever process closes a shared fd last overwrite the other's logs
// -- the reset exists to eliminate that correctness hazard, not merely as a
// belt-and-braces safeguard.
func ResetAfterFork() {
	defaultEngine.ResetAfterFork()
}

func (e *Engine) ResetAfterFork() {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.state == Uninitialized {
		return
	}

	e.registry.Reset()
	e.cfg = nil
	e.logger = nil
	e.logsDir = ""
	e.state = Uninitialized

	e.countersMu.Lock()
	e.nextConnID = 0
	e.countersMu.Unlock()
}

// CloseAllOpenConnections runs the atexit cleanup path: every Connection
// still open is closed, flushing its JSON sink and stopping its capture
// session, before the process exits.
func CloseAllOpenConnections() {
	defaultEngine.CloseAllOpenConnections()
}

func (e *Engine) CloseAllOpenConnections() {
	e.registry.Free(func(c *conn.Connection) {
		finalizeConnection(e, c)
	})
}

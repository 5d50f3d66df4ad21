package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/haskel/benchfox/internal/config"
)

var pidFile string

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// readPIDFile returns the PID stored at path, falling back to the
// configured pid_file when path is empty.
func readPIDFile(path string) (int, error) {
	if path == "" {
		path = config.LoadOrDefault(cfgFile).Server.PIDFile
	}
	if path == "" {
		return 0, fmt.Errorf("no PID file specified (use --pid-file or configure in config)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("PID file not found: %s (server may not be running)", path)
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %s", pidStr)
	}
	return pid, nil
}

// signalServer sends sig to the server process named by the PID file.
func signalServer(sig syscall.Signal) (int, error) {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return 0, err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("process not found: %d", pid)
	}

	if err := process.Signal(sig); err != nil {
		return 0, fmt.Errorf("failed to send signal: %w", err)
	}
	return pid, nil
}

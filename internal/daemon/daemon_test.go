package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsRunning(t *testing.T) {
	dir := t.TempDir()

	t.Run("no_pid_file", func(t *testing.T) {
		running, err := IsRunning(filepath.Join(dir, "missing.pid"))
		if err != nil {
			t.Fatalf("IsRunning failed: %v", err)
		}
		if running {
			t.Error("expected not running without PID file")
		}
	})

	t.Run("current_process", func(t *testing.T) {
		pidFile := filepath.Join(dir, "self.pid")
		if err := WritePID(pidFile, os.Getpid()); err != nil {
			t.Fatalf("WritePID failed: %v", err)
		}
		running, err := IsRunning(pidFile)
		if err != nil {
			t.Fatalf("IsRunning failed: %v", err)
		}
		if !running {
			t.Error("expected current process to be reported running")
		}
	})

	t.Run("garbage_pid_file", func(t *testing.T) {
		pidFile := filepath.Join(dir, "garbage.pid")
		if err := os.WriteFile(pidFile, []byte("not-a-pid\n"), 0600); err != nil {
			t.Fatalf("failed to write PID file: %v", err)
		}
		running, err := IsRunning(pidFile)
		if err != nil {
			t.Fatalf("IsRunning failed: %v", err)
		}
		if running {
			t.Error("expected invalid PID file to mean not running")
		}
	})
}

func TestReadPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "autoapply.pid")
	if err := WritePID(pidFile, 4242); err != nil {
		t.Fatalf("WritePID failed: %v", err)
	}
	pid, err := ReadPID(pidFile)
	if err != nil {
		t.Fatalf("ReadPID failed: %v", err)
	}
	if pid != 4242 {
		t.Errorf("expected PID 4242, got %d", pid)
	}
}

func TestRemovePID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "autoapply.pid")
	if err := RemovePID(pidFile); err != nil {
		t.Errorf("removing a missing PID file should succeed: %v", err)
	}
	if err := WritePID(pidFile, 1); err != nil {
		t.Fatalf("WritePID failed: %v", err)
	}
	if err := RemovePID(pidFile); err != nil {
		t.Fatalf("RemovePID failed: %v", err)
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("expected PID file to be removed")
	}
}

func TestStopWithoutPIDFile(t *testing.T) {
	err := Stop(filepath.Join(t.TempDir(), "missing.pid"), time.Second)
	if err == nil {
		t.Fatal("expected error when PID file is missing")
	}
}

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/logger"
)

var (
	logsFollow bool
	logsLines  int

	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Print the latest session log",
		Long: `Print the end of the most recent daily log in the data directory's logs/
folder. With --follow, keep printing as sessions write to it, switching to the
next day's file when it appears.`,
		Example: `  autoapply logs
  autoapply logs -n 200
  autoapply logs -f`,
		RunE: runLogs,
	}
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep printing new lines")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to print (0 for all)")

	RootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	dir := cfgStore.LogDir()

	path, err := logger.LatestFile(dir)
	if err != nil {
		return err
	}
	if path == "" && !logsFollow {
		fmt.Fprintln(out, "No logs yet. Run 'autoapply run' first.")
		return nil
	}

	var offset int64
	if path != "" {
		if offset, err = tailFile(path, logsLines, out); err != nil {
			return err
		}
	}
	if !logsFollow {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	ctx, stop := signalContext()
	defer stop()
	return followLogs(ctx, dir, path, offset, out)
}

// tailFile writes the last n lines of path to out (all lines when n <= 0)
// and returns the file size it read up to.
func tailFile(path string, n int, out io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	var lines []string
	var size int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		size += int64(len(line)) + 1
		lines = append(lines, line)
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read log: %w", err)
	}

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return size, nil
}

// copyFrom writes path from offset to its end and returns the new offset.
func copyFrom(path string, offset int64, out io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return offset, err
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, err
	}
	n, err := io.Copy(out, f)
	return offset + n, err
}

// followLogs prints lines appended to the current log until ctx is done.
// A newly created daily file becomes the current one.
func followLogs(ctx context.Context, dir, path string, offset int64, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch logs: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDailyLog(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) && event.Name != path {
				path, offset = event.Name, 0
			}
			if event.Name != path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if offset, err = copyFrom(path, offset, out); err != nil {
				return fmt.Errorf("failed to read log: %w", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "logs: watch error: %v\n", err)
		}
	}
}

func isDailyLog(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, "autoapply_") && strings.HasSuffix(base, ".log")
}

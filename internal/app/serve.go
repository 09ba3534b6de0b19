package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/autoapply/internal/api"
	"github.com/blackwell-systems/autoapply/internal/daemon"
	"github.com/blackwell-systems/autoapply/internal/output"
	"github.com/blackwell-systems/autoapply/internal/scheduler"
	"github.com/blackwell-systems/autoapply/internal/session"
)

var (
	servePort        int
	serveSchedule    string
	serveHeadless    bool
	serveDaemon      bool
	serveStop        bool
	serveDaemonChild bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Long: `Start the HTTP API used by the web dashboard.

Sessions started through POST /session/start run in the background; poll
GET /session/{id} for the result. Only one session runs at a time.

With --schedule, a session is also started on a cron schedule (standard
five-field syntax or descriptors such as @daily). A scheduled run that finds
another session in progress is skipped.

With --daemon, the server detaches and logs to server.log in the data
directory. Stop it with 'autoapply serve --stop'.`,
		Example: `  # Foreground on the default port
  autoapply serve

  # Background, weekday mornings, no browser window
  autoapply serve --daemon --headless --schedule "0 9 * * 1-5"

  # Stop the background server
  autoapply serve --stop`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default: $AUTOAPPLY_PORT or 8000)")
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", "cron schedule for automatic sessions (default: $AUTOAPPLY_SCHEDULE)")
	serveCmd.Flags().BoolVar(&serveHeadless, "headless", false, "run Chrome without a window (default: $AUTOAPPLY_HEADLESS)")
	serveCmd.Flags().BoolVar(&serveDaemon, "daemon", false, "run in the background")
	serveCmd.Flags().BoolVar(&serveStop, "stop", false, "stop the background server")
	serveCmd.Flags().BoolVar(&serveDaemonChild, "daemon-child", false, "internal: run as the detached child")
	serveCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		settings.Port = servePort
	}
	if cmd.Flags().Changed("schedule") {
		settings.Schedule = serveSchedule
	}
	if cmd.Flags().Changed("headless") {
		settings.Headless = serveHeadless
	}
	if settings.Port <= 0 || settings.Port > 65535 {
		return fmt.Errorf("invalid port %d", settings.Port)
	}
	if settings.Schedule != "" {
		if err := scheduler.Validate(settings.Schedule); err != nil {
			return err
		}
	}

	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	pidFile := filepath.Join(cfgStore.Dir(), serverPIDFile)

	if serveStop {
		return stopServer(out, pidFile)
	}

	if serveDaemon {
		args := []string{"serve", "--daemon-child",
			"--home", cfgStore.Dir(),
			"--port", strconv.Itoa(settings.Port),
			"--headless=" + strconv.FormatBool(settings.Headless),
		}
		if settings.Schedule != "" {
			args = append(args, "--schedule", settings.Schedule)
		}
		logFile := filepath.Join(cfgStore.Dir(), serverLogFile)
		pid, err := daemon.Start(pidFile, logFile, args...)
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		fmt.Fprintf(out, "%s Server started in background (PID %d)\n", output.Green("✓"), pid)
		fmt.Fprintf(out, "  Listening on: http://localhost:%d\n", settings.Port)
		fmt.Fprintf(out, "  Log file:     %s\n", logFile)
		fmt.Fprintln(out, "  Stop with:    autoapply serve --stop")
		return nil
	}

	if serveDaemonChild {
		defer daemon.RemovePID(pidFile)
	}

	ctx, stop := signalContext()
	defer stop()

	svc := session.NewService(serviceOptions(settings, cfgStore, os.Stdout))
	mgr := session.NewManager(ctx, svc)
	defer mgr.Shutdown()

	if settings.Schedule != "" {
		sched, err := scheduler.New(mgr, settings.Schedule)
		if err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		fmt.Fprintf(out, "Scheduled sessions: %s\n", settings.Schedule)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", settings.Port),
		Handler:           api.NewServer(cfgStore, mgr).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(out, "autoapply API %s listening on http://localhost:%d\n", api.Version, settings.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	err = g.Wait()
	fmt.Fprintln(out, "Server stopped")
	return err
}

func stopServer(out io.Writer, pidFile string) error {
	running, err := daemon.IsRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check server status: %w", err)
	}
	if !running {
		fmt.Fprintln(out, "Server is not running")
		return nil
	}
	if err := daemon.Stop(pidFile, 30*time.Second); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	fmt.Fprintf(out, "%s Server stopped\n", output.Green("✓"))
	return nil
}

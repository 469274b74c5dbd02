package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/bugless/internal/api"
	"github.com/joescharf/bugless/internal/daemon"
	"github.com/joescharf/bugless/internal/history"
	"github.com/joescharf/bugless/internal/identity"
	"github.com/joescharf/bugless/internal/metrics"
	webui "github.com/joescharf/bugless/internal/ui"
)

const shutdownTimeout = 10 * time.Second

var serveDaemon bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for the browser client",
	Long: `Start an HTTP server that serves the browser client and its JSON API.
By default it listens on port 8080. Use --port to change it and --daemon
to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveDaemon {
			return serveStartRun()
		}
		return serveRun(cmd.Context())
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().BoolVarP(&serveDaemon, "daemon", "d", false, "run in the background")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func serveFile(suffix string) string {
	dir, err := configDirFunc()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "bugless-serve"+suffix)
}

// pidFile returns the PID file of the background server.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(serveFile(".pid"))
}

// serveLogPath returns the log file of the background server.
func serveLogPath() string {
	return serveFile(".log")
}

// serveStartRun re-executes the binary in the background.
func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("bugless serve is already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	args := []string{"serve", "--port", strconv.Itoa(viper.GetInt("server.port"))}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}

	logPath := serveLogPath()
	if ui.DryRun {
		ui.DryRunMsg("Would run %s %v, logging to %s", exe, args, logPath)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	detach(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	_ = child.Process.Release()

	ui.Success("bugless serve started (pid %d) on port %d", child.Process.Pid, viper.GetInt("server.port"))
	ui.Info("Logs: %s", logPath)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return errors.New("bugless serve is not running")
	}

	if err := pf.Signal(termSignal()); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	if !pf.WaitExit(shutdownTimeout+2*time.Second, 100*time.Millisecond) {
		ui.Warning("Server did not stop in time, killing pid %d", pid)
		_ = pf.Signal(killSignal())
	}
	_ = pf.Remove()
	ui.Success("bugless serve stopped (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	pid, running := pidFile().IsRunning()
	if !running {
		ui.Info("bugless serve is not running")
		return nil
	}
	ui.Success("bugless serve is running (pid %d)", pid)
	ui.Info("Logs: %s", serveLogPath())
	return nil
}

// newAPIServer wires the store, model, identity and metrics into the API.
func newAPIServer(ctx context.Context) (*api.Server, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	logger := slog.Default()

	requester, err := newRequester(m)
	if err != nil {
		return nil, err
	}
	if !requester.Configured() {
		ui.Warning("No API key configured; reviews will fail until one is set (see 'bugless config')")
	}

	var fed identity.FederatedVerifier
	if clientID := viper.GetString("google.client_id"); clientID != "" {
		g, err := identity.NewGoogleAuthenticator(ctx, identity.GoogleConfig{
			ClientID:     clientID,
			ClientSecret: viper.GetString("google.client_secret"),
			RedirectURL:  viper.GetString("google.redirect_url"),
			Issuer:       viper.GetString("google.issuer"),
		})
		if err != nil {
			ui.Warning("Google sign-in disabled: %v", err)
		} else {
			fed = g
		}
	}

	return api.NewServer(api.Config{
		Gateway:       identity.NewGateway(identity.NewLocalProvider(s, fed), logger, m),
		History:       history.New(s, logger, m),
		Analyzer:      requester,
		Metrics:       m,
		SessionSecret: []byte(viper.GetString("session.secret")),
		SessionTTL:    viper.GetDuration("session.ttl"),
		SecureCookies: viper.GetBool("session.secure"),
		Logger:        logger,
	})
}

// serveRun runs the server in the foreground until a shutdown signal.
func serveRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, stopSignals()...)
	defer stop()

	pf := pidFile()
	if err := pf.Acquire(os.Getpid()); err != nil {
		return fmt.Errorf("bugless serve: %w", err)
	}
	defer func() { _ = pf.Release(os.Getpid()) }()

	apiSrv, err := newAPIServer(ctx)
	if err != nil {
		return err
	}
	defer apiSrv.Close()

	handler, err := webui.Mount(apiSrv.Router())
	if err != nil {
		return fmt.Errorf("failed to initialize UI handler: %w", err)
	}

	addr := fmt.Sprintf(":%d", viper.GetInt("server.port"))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ui.Info("Serving bugless at http://localhost%s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "system", "serve")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}

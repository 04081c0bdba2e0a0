package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tomz197/outgrowth/internal/config"
	"github.com/tomz197/outgrowth/internal/draw"
	internallog "github.com/tomz197/outgrowth/internal/logging"
	"github.com/tomz197/outgrowth/internal/loop/client"
	"github.com/tomz197/outgrowth/internal/loop/server"
	"github.com/tomz197/outgrowth/internal/metrics"
)

const (
	gameShutdownTimeout = 15 * time.Second
	sshShutdownTimeout  = 5 * time.Second
)

var rootCmd = &cobra.Command{
	Use:          "outgrowth-ssh",
	Short:        "Shared outgrowth world over SSH",
	Long:         `Serves one shared tree-defense world to every SSH session.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		logger, err := internallog.New(os.Stderr, internallog.Options{
			Level:     settings.LogLevel,
			Format:    settings.LogFormat,
			Prefix:    "ssh",
			Timestamp: true,
		})
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, settings, logger)
	},
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serve runs the game server, the SSH listener and the optional metrics
// endpoint until ctx is cancelled.
func serve(ctx context.Context, settings config.Settings, logger *log.Logger) error {
	workingDir, err := os.Getwd()
	if err != nil {
		logger.Warn("failed to get working directory", "err", err)
	}
	logger.Info("ssh config", "addr", settings.SSHAddr(), "hostKey", settings.HostKeyPath, "workingDir", workingDir)

	m := metrics.New()
	gameServer, err := server.NewServer(server.Options{
		Logger:    logger.WithPrefix("game"),
		Metrics:   m,
		Seed:      settings.Seed,
		Corridors: settings.Corridors,
		MaxDepth:  settings.MaxDepth,
	})
	if err != nil {
		return err
	}

	opts := []ssh.Option{
		wish.WithAddress(settings.SSHAddr()),
		wish.WithMiddleware(
			gameMiddleware(gameServer, logger),
			activeterm.Middleware(),
			logging.MiddlewareWithLogger(logger),
		),
		// Set TCP_NODELAY to reduce latency for game input
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if settings.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(settings.HostKeyPath))
	}

	sshServer, err := wish.NewServer(opts...)
	if err != nil {
		return errors.Wrap(err, "create ssh server")
	}

	gameCtx, cancelGame := context.WithCancel(context.Background())
	defer cancelGame()
	go gameServer.Run(gameCtx)

	var metricsServer *http.Server
	if settings.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{Addr: settings.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting SSH server", "addr", settings.SSHAddr())
		if err := sshServer.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return errors.Wrap(err, "ssh server")
		}
		return nil
	})
	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("serving metrics", "addr", settings.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		// Notify players and wait for them to disconnect
		logger.Info("notifying connected players about shutdown...")
		gameServer.Shutdown(gameShutdownTimeout)
		cancelGame()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), sshShutdownTimeout)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		if err := sshServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "ssh shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "err", err)
		return err
	}
	return nil
}

// gameMiddleware handles SSH sessions and runs the game client.
func gameMiddleware(gameServer *server.Server, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}

			logger.Info("new game session",
				"user", sess.User(), "term", pty.Term, "cols", pty.Window.Width, "rows", pty.Window.Height)

			// Create a terminal size tracker that updates on window changes
			sizeTracker := newSizeTracker(pty.Window.Width, pty.Window.Height)
			go func() {
				for win := range winCh {
					sizeTracker.update(win.Width, win.Height)
				}
			}()

			c := client.NewClient(gameServer, bufio.NewReader(sess), sess, client.ClientOptions{
				TermSizeFunc: sizeTracker.getSize,
				Username:     sess.User(),
			})
			if err := c.Run(); err != nil {
				logger.Error("game error", "user", sess.User(), "err", err)
			}

			logger.Info("session ended", "user", sess.User())
			next(sess)
		}
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

// Ensure sizeTracker.getSize satisfies draw.TermSizeFunc
var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
	"github.com/vovakirdan/tui-battleships/internal/platform/tui"
	"github.com/vovakirdan/tui-battleships/internal/platform/web"
	"github.com/vovakirdan/tui-battleships/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var (
	flagHTTPAddr string
	flagSSHAddr  string
	flagHostKey  string
	flagNoSSH    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the battleships servers",
	Long: `Start the HTTP/WebSocket server and the SSH server. Both share one room
coordinator, so browser and terminal players can meet in the same room.

Rooms and match results are stored in the SQLite database; rooms are
restored from it when a client first asks for them after a restart.

Host key handling:
  - If --host-key (or server.host_key) is set, uses that key file
  - Otherwise, auto-generates a key at ~/.battleships/host_key

Examples:
  battleships serve                       # :8080 for HTTP, :23234 for SSH
  battleships serve --http :9000 --no-ssh
  battleships serve --db ./battleships.db

Players can connect with:
  ssh localhost -p 23234
  ws://localhost:8080/ws/<code>`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "HTTP listen address (overrides server.http_addr)")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH listen address (overrides server.ssh_addr)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to SSH host key (auto-generated if not specified)")
	serveCmd.Flags().BoolVar(&flagNoSSH, "no-ssh", false, "Do not start the SSH server")
}

func runServe(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()
	logger := newLogger()

	if flagHTTPAddr != "" {
		cfg.Server.HTTPAddr = flagHTTPAddr
	}
	if flagSSHAddr != "" {
		cfg.Server.SSHAddr = flagSSHAddr
	}
	if flagHostKey != "" {
		cfg.Server.HostKey = flagHostKey
	}

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	coord := multiplayer.NewCoordinator(cfg.CoordinatorConfig(), store, logger.WithPrefix("rooms"))
	coord.SetResultSaver(store)
	coord.Start()
	defer coord.Stop()

	httpSrv := web.NewServer(coord, web.Config{
		Addr:             cfg.Server.HTTPAddr,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		ActionsPerSecond: cfg.Limits.ActionsPerSecond,
		Burst:            cfg.Limits.Burst,
		EventBuffer:      cfg.Rooms.EventBuffer,
	}, logger.WithPrefix("web"))

	var sshSrv *tui.SSHServer
	if !flagNoSSH {
		bot, err := cfg.AI.BotConfig("", 0, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error in ai config: %v\n", err)
			os.Exit(1)
		}
		sshSrv, err = tui.NewSSHServer(tui.SSHServerConfig{
			Address:     cfg.Server.SSHAddr,
			HostKeyPath: cfg.Server.HostKey,
			IdleTimeout: cfg.Server.IdleTimeout.D(),
			EventBuffer: cfg.Rooms.EventBuffer,
			Bot:         bot,
		}, coord, store, logger.WithPrefix("ssh"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating SSH server: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- httpSrv.ListenAndServe() }()
	if sshSrv != nil {
		go func() { errs <- sshSrv.ListenAndServe() }()
		logger.Info("connect with", "ssh", "ssh localhost -p "+portOf(cfg.Server.SSHAddr))
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-errs:
		if err != nil {
			logger.Error("server failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "err", err)
	}
	if sshSrv != nil {
		if err := sshSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("SSH shutdown", "err", err)
		}
	}
}

// portOf returns the port part of a listen address like ":23234".
func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}

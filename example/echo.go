package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marco-hartmann/verible/lsp"
)

// An echo service speaking Content-Length framed messages: every body that
// arrives is framed and sent straight back. Try it with:
//
//	printf 'Content-Length: 5\r\n\r\nhello' | nc 127.0.0.1 12345
func main() {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:12345")
	if err != nil {
		panic(err)
	}

	server, err := lsp.NewServer(addr,
		lsp.ServerShutdownTimeoutOption(5*time.Second),
	)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}

	echo := func(conn *lsp.Conn, header, body []byte) {
		// The body view is only valid inside this call; the outbound queue
		// needs its own copy.
		reply := append([]byte(nil), body...)
		if err := conn.Write(reply); err != nil {
			slog.Error("echo failed", "addr", conn.Addr(), "error", err)
		}
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down server...")
		cancel()
	}()

	slog.Info("server start", "addr", addr.String())
	if err := server.Serve(ctx,
		lsp.OnMessageOption(echo),
		lsp.BufferCapacityOption(1<<16),
	); err != nil && err != context.Canceled {
		slog.Error("server error", "error", err)
	}
}

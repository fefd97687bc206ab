// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command mould-server runs the reference services (echo, count, longjob)
// behind a WebSocket Acceptor, the demo deployment cmd/mould-client drives
// end to end.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"time"

	"golang.org/x/time/rate"

	"github.com/mouldproto/mould/internal/devauth"
	"github.com/mouldproto/mould/internal/mouldcfg"
	"github.com/mouldproto/mould/mould"
	"github.com/mouldproto/mould/permission"
	"github.com/mouldproto/mould/services/count"
	"github.com/mouldproto/mould/services/echo"
	"github.com/mouldproto/mould/services/longjob"
	"github.com/mouldproto/mould/services/session"
	"github.com/mouldproto/mould/transport/ws"
)

const shutdownGrace = 5 * time.Second

var (
	addr        = flag.String("addr", ":8765", "address to listen on")
	path        = flag.String("path", "/mould", "HTTP path to upgrade to WebSocket on")
	connsPerSec = flag.Float64("conn-rate", 0, "max new connections per second (0 = unlimited)")
	authAddr    = flag.String("auth-addr", ":8766", "address for the bundled demo authorization server")
	authSecret  = flag.String("auth-secret", "mould-demo-secret", "HMAC secret shared between the demo authorization server and the Permission verifier")
	noAuth      = flag.Bool("no-auth", false, "skip starting the demo authorization server and accept every connection anonymously (echo.say then always denies)")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	builder := session.Builder{}
	if !*noAuth {
		builder.Verifier = permission.NewHMACVerifier([]byte(*authSecret))

		devSrv := &devauth.Server{
			Secret:  []byte(*authSecret),
			Subject: "demo-user",
			Scope:   string(echo.RightSay) + " " + string(longjob.RightRun),
		}
		authServer := &http.Server{Addr: *authAddr, Handler: devSrv.Handler()}
		go func() {
			logger.Info("demo authorization server listening", "addr", *authAddr)
			if err := authServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("auth ListenAndServe: %v", err)
			}
		}()
		defer authServer.Close()
	}

	suite := mould.NewSuite[session.State](builder)
	suite.Register("echo", echo.New())
	suite.Register("count", count.New())
	suite.Register("longjob", longjob.New())

	pingInterval := time.Duration(mouldcfg.Int("pinginterval", int(ws.DefaultPingInterval/time.Second))) * time.Second

	listener := ws.NewListener()
	listener.Options.PingInterval = pingInterval
	mux := http.NewServeMux()
	mux.Handle(*path, listener)
	server := &http.Server{Addr: *addr, Handler: mux}

	acceptorOpts := mould.AcceptorOptions[session.State]{
		Logger: logger,
		Dispatcher: mould.DispatcherOptions[session.State]{
			SuspendCapacity: mouldcfg.Int("suspendcap", mould.DefaultSuspendCapacity),
			PingInterval:    pingInterval,
			MaxMissedPings:  mouldcfg.Int("maxmissedpings", mould.DefaultMaxMissedPings),
			Logger:          logger,
			Middleware:      []mould.Middleware[session.State]{mould.LoggingMiddleware[session.State](logger)},
		},
	}
	if *connsPerSec > 0 {
		acceptorOpts.ConnLimiter = rate.NewLimiter(rate.Limit(*connsPerSec), 1)
	}
	acceptor := mould.NewAcceptor[session.State](listener, suite, acceptorOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("mould-server listening", "addr", *addr, "path", *path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	go func() {
		if err := acceptor.Serve(ctx); err != nil {
			logger.Error("acceptor stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	listener.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	server.Shutdown(shutdownCtx)
}

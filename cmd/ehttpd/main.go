// File: cmd/ehttpd/main.go
// Author: yoyo-hu
//
// Entry point: construct, Start, wait on an interrupt channel, Stop,
// extended with the resource-limit raise and log wiring a production
// WebServer constructor would perform inline.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/yoyo-hu/webserver/config"
	"github.com/yoyo-hu/webserver/internal/dispatcher"
	"github.com/yoyo-hu/webserver/internal/httpserve"
	"github.com/yoyo-hu/webserver/internal/metrics"
	"github.com/yoyo-hu/webserver/internal/obslog"
	"github.com/yoyo-hu/webserver/internal/sqlstore"

	"github.com/yoyo-hu/webserver/api"
)

const maxFdRlimit = dispatcher.MaxFd + 1024

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ehttpd: config:", err)
		return 1
	}

	if err := raiseFdLimit(maxFdRlimit); err != nil {
		fmt.Fprintln(os.Stderr, "ehttpd: raise RLIMIT_NOFILE:", err)
		// Not fatal: the server still runs, just capped lower than MaxFd.
	}

	logger := obslog.New(cfg.LogLevel)
	log := obslog.Component(logger, "ehttpd")

	reg := metrics.New()
	reg.Set("pid", os.Getpid())

	var pool api.SQLPool
	if cfg.MySQLDSN != "" {
		p, err := sqlstore.Open(cfg.MySQLDSN, cfg.WorkerCount)
		if err != nil {
			log.Warnf("mysql pool unavailable, /api/ routes will degrade to 503: %v", err)
		} else {
			pool = p
			defer p.Close()
		}
	}

	resolver := httpserve.NewDirResolver("./resources")
	connLog := obslog.Component(logger, "httpserve")

	srv, err := dispatcher.New(dispatcher.Config{
		Port:          cfg.Port,
		TriggerMode:   dispatcher.TriggerMode(cfg.TriggerMode),
		IdleTimeoutMs: cfg.IdleTimeoutMs,
		OpenLinger:    cfg.OpenLinger,
		WorkerCount:   cfg.WorkerCount,
		Logger:        obslog.Component(logger, "dispatcher"),
		Metrics:       reg,
		NewConn: func() api.HTTPConn {
			return httpserve.New(resolver, pool, reg, connLog)
		},
	})
	if err != nil {
		log.Errorf("server init: %v", err)
		return 1
	}

	if err := srv.Start(); err != nil {
		log.Errorf("server start: %v", err)
		return 1
	}
	log.Infof("pid=%d, started", os.Getpid())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	signal.Ignore(syscall.SIGPIPE)

	<-signalChan
	log.Infof("shutting down")
	srv.Stop()
	log.Infof("stopped cleanly")
	return 0
}

// raiseFdLimit raises RLIMIT_NOFILE to n if the current soft limit is
// lower and the hard limit allows it, so MaxFd live connections are
// actually reachable.
func raiseFdLimit(n uint64) error {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return err
	}
	if rl.Cur >= n {
		return nil
	}
	if rl.Max < n {
		n = rl.Max
	}
	rl.Cur = n
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rl)
}

// Command sessiond is the multi-session inference server's HTTP
// front-end and root worker, wired together the way the teacher's
// _examples/api/main.go wires config, logging, and the server lifecycle
// (errgroup + signal.NotifyContext for graceful shutdown).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mharrison-oss/sessiond/internal/config"
	"github.com/mharrison-oss/sessiond/internal/httpapi"
	"github.com/mharrison-oss/sessiond/internal/httpserver"
	"github.com/mharrison-oss/sessiond/internal/ids"
	"github.com/mharrison-oss/sessiond/internal/ipc"
	"github.com/mharrison-oss/sessiond/internal/obslog"
	"github.com/mharrison-oss/sessiond/internal/procloop"
	"github.com/mharrison-oss/sessiond/internal/registry"
	"github.com/mharrison-oss/sessiond/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad[Config]()
	log := obslog.New(cfg.AppName, cfg.Env)

	eng, err := buildEngine(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build engine backend", obslog.Error(err))
		os.Exit(1)
	}

	ipcReg := ipc.NewRegistry()
	sessions := registry.New()
	alloc := &ids.SessionAllocator{}

	root, rootInbox, err := session.New(ipcReg, alloc, eng, log)
	if err != nil {
		log.Error("failed to create root worker", obslog.Error(err))
		os.Exit(1)
	}

	rootLoop := procloop.New(rootInbox, ipcReg, log)
	go rootLoop.Run(ctx, root)

	api := httpapi.New(ipcReg, sessions, log)

	srv := httpserver.New(cfg.HTTPAddr, log)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(srv.Run(egCtx, api.Routes()))

	if err := eg.Wait(); err != nil {
		log.Error("sessiond exited with error", obslog.Error(err))
		os.Exit(1)
	}

	log.Info("sessiond stopped", slog.String("addr", cfg.HTTPAddr))
}

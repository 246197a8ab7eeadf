package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"quickaid/go-backend/internal/adapters/rpc"
	"quickaid/go-backend/internal/app"
	"quickaid/go-backend/internal/bootstrap/dispatchconfig"
	"quickaid/go-backend/internal/dispatch"
	"quickaid/go-backend/internal/platform/privacylog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", "", "RPC listen address (overrides config)")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("quickaid-daemon version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(logger)

	cfg := dispatchconfig.LoadFromPath(*configPath)
	if *rpcAddr != "" {
		cfg.RPCAddr = *rpcAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := app.NewNotificationHub()
	engine := dispatch.NewEngine(cfg.Dispatch, hub, logger)
	srv := rpc.NewServer(cfg.RPCAddr, engine, hub, logger)

	log.Println("quickaid-daemon starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("quickaid-daemon failed: %v", err)
	}
	log.Println("quickaid-daemon stopped")
}

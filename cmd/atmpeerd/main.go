// Package main provides atmpeerd, one of the two replicated ATM peer
// daemons: it serves the Local Registry, runs the command queue and
// coordinator worker loop, and owns the local account database.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/config"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/coordinator"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/events"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/executor"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/monitor"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/queue"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/storage"
	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/logging"
)

var (
	version = "0.1.0-dev"
)

var (
	authServiceType = reflect.TypeOf((*bank.AuthService)(nil)).Elem()
	peerServiceType = reflect.TypeOf((*bank.PeerService)(nil)).Elem()
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.atmpeer", "Data directory")
		configFile  = flag.String("config", "", "Directory holding config.yaml (default: <data-dir>)")
		monitorAddr = flag.String("monitor", "", "Dashboard WebSocket address, e.g. 127.0.0.1:8090 (disabled if empty)")
		logLevel    = flag.String("log-level", "", "Log level, overrides config (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("atmpeerd %s\n", version)
		os.Exit(0)
	}

	log := logging.New(logging.DefaultConfig())
	logging.SetDefault(log)

	configDir := *dataDir
	if *configFile != "" {
		configDir = *configFile
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Infof("config loaded from %s", config.ConfigPath(configDir))

	self, err := cfg.Self()
	if err != nil {
		log.Fatal("invalid config", "error", err)
	}
	otherID, err := cfg.OtherPeerID()
	if err != nil {
		log.Fatal("invalid config", "error", err)
	}
	otherAddr := cfg.Peers[otherID]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(&storage.Config{DataDir: cfg.DataDir})
	if err != nil {
		log.Fatal("failed to open storage", "error", err)
	}
	defer store.Close()
	log.Infof("storage opened at %s", cfg.DataDir)

	reg := rmi.NewRegistry(self.Host, self.Port)
	cmdQueue := queue.New()
	emitter := events.New(64)
	exec := executor.New(store, cfg.PeerID)

	authService := bank.NewAuthService(store, reg, cmdQueue, cfg.PeerID)
	if err := reg.Bind("auth", authServiceType, authService); err != nil {
		log.Fatal("failed to bind auth service", "error", err)
	}

	peerClient := rmi.NewClient(otherAddr.Host, otherAddr.Port)
	peerStub := bank.NewPeerStub(peerClient)
	startsWithToken := cfg.PeerID == 1
	co := coordinator.New(coordinator.DefaultConfig(), cmdQueue, exec, emitter, peerStub, cfg.PeerID, startsWithToken)
	if err := reg.Bind("peer", peerServiceType, co); err != nil {
		log.Fatal("failed to bind peer service", "error", err)
	}

	var hub *monitor.WSHub
	if *monitorAddr != "" {
		hub = monitor.NewWSHub()
		co.SetMonitor(hub)
		go hub.Run()

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.HandleWS)
		httpServer := &http.Server{Addr: *monitorAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("monitor http server: %v", err)
			}
		}()
		defer httpServer.Close()
		log.Infof("dashboard feed on ws://%s/ws", *monitorAddr)
	}

	go emitter.Run(ctx)
	go co.Run(ctx)

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- reg.Serve(ctx) }()
	<-reg.Ready()

	log.Infof("atmpeerd %d listening on %s:%d (peer %d at %s:%d, %s)",
		cfg.PeerID, self.Host, self.Port, otherID, otherAddr.Host, otherAddr.Port,
		tokenLabel(startsWithToken))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-serveErrCh:
		if err != nil {
			log.Errorf("registry stopped: %v", err)
		}
	}

	cancel()
	peerClient.Close()
	log.Info("goodbye")
}

func tokenLabel(startsWithToken bool) string {
	if startsWithToken {
		return "starts with token"
	}
	return "starts without token"
}

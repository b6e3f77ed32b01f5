package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/decred/slog"

	"github.com/ezivnuska/pokertable/pkg/engine"
	"github.com/ezivnuska/pokertable/pkg/server"
	"github.com/ezivnuska/pokertable/pkg/store"
)

func main() {
	var (
		dbPath      string
		listenAddr  string
		seed        int64
		turnSeconds int
		tickMs      int
		debugLevel  string
	)
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database file (created if missing)")
	flag.StringVar(&listenAddr, "listen", "127.0.0.1:8080", "Address to listen on")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for decks (0 = random)")
	flag.IntVar(&turnSeconds, "turnseconds", 0, "Action timer duration in seconds (0 = default)")
	flag.IntVar(&tickMs, "tickms", 1000, "Maintenance sweep interval in milliseconds")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "pokertable.sqlite")
	}

	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("SRVR")
	if lvl, ok := slog.LevelFromString(debugLevel); ok {
		log.SetLevel(lvl)
	}

	st, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	cfg := engine.DefaultConfig()
	if seed == 0 {
		if env := os.Getenv("POKER_SEED"); env != "" {
			if v, err := strconv.ParseInt(env, 10, 64); err == nil {
				seed = v
			}
		}
	}
	cfg.Seed = seed
	if turnSeconds > 0 {
		cfg.TurnDuration = time.Duration(turnSeconds) * time.Second
	}

	hub := server.NewHub(backend.Logger("HUBX"))
	eng := engine.New(st, hub, backend.Logger("GAME"), cfg)
	srv := server.New(eng, hub, log, listenAddr, time.Duration(tickMs)*time.Millisecond)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

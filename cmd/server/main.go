package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/Datbui1711/webchat/internal/server"
)

func main() {
	fs := flag.NewFlagSet("webchat", flag.ExitOnError)
	envFile := fs.StringP("env-file", "e", ".env", "Env file with configuration overrides")
	addr := fs.StringP("addr", "a", "", "Listen address, overrides SERVER_PORT")
	staticDir := fs.String("static-dir", "", "Directory with the browser client, overrides STATIC_DIR")
	redisAddr := fs.String("redis-addr", "", "Redis address for cross-instance fanout, overrides REDIS_ADDR")
	_ = fs.Parse(os.Args[1:])

	// Local .env is optional; real deployments configure the environment.
	_ = godotenv.Load(*envFile)

	cfg := server.NewConfigFromEnv()
	if *addr != "" {
		cfg.Port = *addr
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	if *redisAddr != "" {
		cfg.RedisAddr = *redisAddr
	}
	server.SetConfig(cfg)
	server.InitLogging(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.RedisAddr != "" {
		bus, err := server.NewFanoutBus(ctx, cfg.RedisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis connect: %v\n", err)
			os.Exit(1)
		}
		defer bus.Close()
		server.GetHub().AttachBus(bus)
	}

	server.StartHub()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "server: %v\n", err)
			os.Exit(1)
		}
	}

	_ = server.ShutdownServer(httpServer, 10*time.Second)
	_ = server.GetHub().Shutdown(5 * time.Second)
}

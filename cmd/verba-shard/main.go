package main

import (
	"os"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"verba/internal/assistant"
	"verba/internal/bus"
	"verba/internal/config"
	"verba/internal/proxy"
)

// verba-shard runs the dispatcher as a hub worker: no terminal, no ipc
// socket, just bus traffic in and replies out.
func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "verba.yaml", "Config file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	busURL := cli.StringP("bus", "b", "ws://localhost:8092", "Websocket bus url")
	name := cli.StringP("name", "n", "verba", "Shard name on the bus")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	levels := map[string]log.Level{
		"debug": log.LevelDebug, "info": log.LevelInfo,
		"warn": log.LevelWarn, "error": log.LevelError,
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: levels[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	if env := os.Getenv("BUS_URL"); env != "" {
		*busURL = env
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "path", *cfgFile, "err", err)
		os.Exit(1)
	}

	httpClient, err := proxy.NewSocksClient(*proxyAddr)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	a := assistant.New(cfg, config.Env(), httpClient)
	a.SetAnnounce(func(text string) {
		log.Info("Announce", "text", text)
	})
	a.Start()

	log.Info("Boot up - successful")

	bus.Run(*busURL, *name, func(text string) (string, bool) {
		reply := a.Dispatch("bus", text)
		return reply.Text, !reply.Ignored
	})
}

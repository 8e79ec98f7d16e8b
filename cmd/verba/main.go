package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"verba/internal/assistant"
	"verba/internal/bus"
	"verba/internal/config"
	"verba/internal/ipc"
	"verba/internal/proxy"
	"verba/internal/router"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "verba.yaml", "Config file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	busURL := cli.StringP("bus", "b", "", "Websocket bus url (empty disables)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	creds := config.Env()

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

	a := assistant.New(cfg, creds, httpClient)
	a.SetAnnounce(func(text string) {
		log.Info("Announce", "text", text)
		fmt.Println(text)
	})
	a.Start()

	if err := ipc.StartServer(func(msg ipc.Utterance) ipc.Response {
		// Utterances over ipc come from a voice frontend; duck the music
		// while handling.
		a.Music.DuckVolume(20)
		reply := a.Dispatch("ipc", msg.Text)
		a.Music.RestoreVolume()
		logScores(reply)
		return ipc.Response{Text: reply.Text, Ignored: reply.Ignored}
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	if *busURL != "" {
		go bus.Run(*busURL, "verba", func(text string) (string, bool) {
			reply := a.Dispatch("bus", text)
			return reply.Text, !reply.Ignored
		})
	}

	log.Info("Boot up - successful")

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		text := scanner.Text()
		if text != "" {
			reply := a.Dispatch("repl", text)
			logScores(reply)
			if !reply.Ignored {
				fmt.Println(reply.Text)
			}
			if a.Quit.Requested() {
				log.Info("Quit requested. Goodbye!")
				return
			}
		}
		fmt.Print("> ")
	}
}

func logScores(reply router.Reply) {
	if len(reply.Scores) == 0 {
		return
	}
	parts := make([]string, len(reply.Scores))
	for i, s := range reply.Scores {
		parts[i] = fmt.Sprintf("%s=%.2f", s.Module, s.Score)
	}
	log.Debug("Scores", "scores", strings.Join(parts, ", "))
}

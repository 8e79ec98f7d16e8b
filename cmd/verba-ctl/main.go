package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"verba/internal/ipc"
)

func main() {
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: log.LevelWarn,
	})))

	text := strings.Join(cli.Args(), " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(os.Stderr, "usage: verba-ctl <utterance>")
		os.Exit(2)
	}

	resp, err := ipc.Send(text)
	if err != nil {
		log.Error("Failed to reach daemon", "err", err)
		os.Exit(1)
	}
	if resp.Ignored {
		return
	}
	fmt.Println(resp.Text)
}

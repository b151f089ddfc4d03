package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/keybridge/internal/config"
	"github.com/danmuck/keybridge/internal/daemon"
	"github.com/danmuck/keybridge/internal/logging"
	"github.com/danmuck/keybridge/internal/observability"
)

func main() {
	cfgPath := flag.String("config", "", "path to keybridged config file (defaults apply when empty)")
	flag.Parse()

	logging.ConfigureRuntime()
	log := observability.InitLogger("keybridged")

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "keybridged: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc := daemon.NewService(cfg, log)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "keybridged: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"waterwatch-server/internal/config"
	db "waterwatch-server/internal/db"
	"waterwatch-server/internal/logging"
	"waterwatch-server/internal/migrate"
)

const version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <command>\n  migrate  apply pending schema migrations\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, "migrate"))

	conn, err := db.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	switch os.Args[1] {
	case "migrate":
		if err := migrate.Run(conn, cfg.Driver); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migrations applied")
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

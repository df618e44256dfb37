package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/nestwatch/internal/server"
	"github.com/dmitrijs2005/nestwatch/internal/server/auth"
	"github.com/dmitrijs2005/nestwatch/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// nestwatch-server token <user-id> prints a device token.
	if len(os.Args) > 2 && os.Args[1] == "token" {
		tok, err := auth.GenerateToken(os.Args[2], []byte(cfg.SecretKey), cfg.TokenValidity)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

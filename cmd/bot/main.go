package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"giftomatic/internal/app"
	"giftomatic/internal/config"
)

func main() {
	var (
		cfgPath string
		initCfg bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&initCfg, "init", false, "write an example config and exit")
	flag.Parse()

	if initCfg {
		if err := config.WriteExample(cfgPath); err != nil {
			fmt.Println("init:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", cfgPath)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	_ = a.Stop(context.Background())
}

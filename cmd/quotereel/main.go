package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/quotereel/quotereel"
)

func main() {
	godotenv.Load()

	cfg, err := quotereel.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "quotereel: %v\n", err)
		os.Exit(1)
	}

	app := quotereel.New(cfg)
	defer app.Close()

	if err := app.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "quotereel: %v\n", err)
		os.Exit(1)
	}
}

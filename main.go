// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/handlers"
)

func main() {
	// .env values fill in ULSYNC_* variables that are not already set.
	if err := config.LoadDotEnv(os.Getenv("ULSYNC_ENV_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(handlers.ExitCommandError)
	}

	// An interrupt cancels the run; the table being merged rolls back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := handlers.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Command mirzo — клиент Mirzo AI для командной строки.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/mirzo-ai/internal/cli"
)

// version задаётся при сборке через -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := func() int {
		defer stop()
		cli.SetVersion(version)
		return cli.Execute(ctx, os.Args[1:])
	}()
	os.Exit(code)
}

// Command diaryctl is a terminal client for the diary service.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Thcamm/personal-diary/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Command chat lists rooms and sends prompts to the chat backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iloveyushi/ainaojin/internal/chatcli"
	"github.com/iloveyushi/ainaojin/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	code := chatcli.Execute(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

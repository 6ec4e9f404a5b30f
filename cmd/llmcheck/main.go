// Command llmcheck verifies that the configured completion API key works by
// generating a sample Signalist welcome message.
//
// Usage:
//
//	llmcheck [--provider openai|gemini] [--model gpt-3.5-turbo]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Getenv)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCheckFailed) && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
)

func main() {
	logger := NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		if errors.Is(err, ErrNotSignedIn) {
			logger.Error(ErrNotSignedIn.Error())
			os.Exit(2)
		}
		logger.Fatalf("%v", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nijaru/yt-digest/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

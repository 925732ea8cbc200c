// Command journal records trades and reports trading performance.
package main

import (
	"context"
	"fmt"
	"os"

	"trading-journal/internal/cli"
	"trading-journal/internal/logging"
)

func main() {
	if err := cli.Execute(context.Background(), nil, logging.NewLogger()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

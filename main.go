package main

import (
	"context"
	"errors"
	"os"

	"github.com/thenoetrevino/collabflow/cmd"
	"github.com/thenoetrevino/collabflow/internal/cli"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		// Cobra flag and argument errors never reach a formatter.
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(cli.ExitUsage)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/YoshitsuguKoike/gba/internal/app"
	"github.com/YoshitsuguKoike/gba/internal/interface/cli"
)

func main() {
	err := cli.NewRoot().Execute()
	_ = app.SyncLogger(app.GetLogger())
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

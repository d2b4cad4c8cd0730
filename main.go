package main

import (
	"os"

	"github.com/cardoc/cardoc-go/cmd"
	"github.com/cardoc/cardoc-go/internal/buildinfo"
	"github.com/cardoc/cardoc-go/internal/conf"
)

// buildDate, version and commit are set with -ldflags at build time.
var (
	buildDate string
	version   string
	commit    string
)

func main() {
	ctx := conf.NewContext(&buildinfo.Context{
		Version:   version,
		BuildDate: buildDate,
		Commit:    commit,
	})

	if err := cmd.RootCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}

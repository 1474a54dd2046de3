package main

import (
	"context"
	"os"

	"github.com/ovr-platform/ovr-deploy/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteJob(context.Background(), "deploy-marketplace", os.Stdout, os.Stderr))
}

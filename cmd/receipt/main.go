package main

import (
	"context"
	"os"

	"github.com/noah-isme/receipt/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}

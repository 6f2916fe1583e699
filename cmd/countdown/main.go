package main

import (
	"os"

	"countdown/internal/adapter/primary/cli"
)

func main() {
	os.Exit(cli.Execute())
}

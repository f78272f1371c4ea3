package main

import (
	"os"

	"tracker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

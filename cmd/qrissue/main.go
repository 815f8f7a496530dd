package main

import (
	"os"

	"qrattend/cmd/qrissue/commands"
)

func main() {
	// Errors are already printed in color by the commands.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

// Command tagimport reads tag exports from the command line: it summarizes
// or converts a file, or imports it into the track database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tagimport/internal/importer"
)

func main() {
	// Unlike the server, the shell environment wins over .env here.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		if importer.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "error:", importer.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bartekus/civerify/cmd/civerify/commands"
	"github.com/bartekus/civerify/cmd/civerify/internal/clierr"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("civerify: ")

	if err := commands.NewRootCmd().Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(clierr.ExitCodeOf(err))
	}
}

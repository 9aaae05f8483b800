// Command postboard serves the postboard HTTP API.
package main

import (
	"fmt"
	"os"

	"postboard/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "postboard:", err)
		os.Exit(1)
	}
}

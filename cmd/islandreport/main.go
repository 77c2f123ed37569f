package main

import (
	"fmt"
	"os"

	"github.com/hakim/islandreport/internal/observability"
)

func main() {
	err := Execute()
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

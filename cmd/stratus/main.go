package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/stratus/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stratus:", err)
		os.Exit(1)
	}
}

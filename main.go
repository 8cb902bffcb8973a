package main

import (
	"fmt"
	"os"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.Bootstrapped).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

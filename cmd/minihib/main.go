// Package main provides the minihib CLI.
package main

import (
	"os"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}

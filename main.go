// Package main is the entry point for the zest CLI.
package main

import (
	"zest.dev/pkg/zest/cmd"

	_ "zest.dev/pkg/zest/zests"
)

func main() {
	cmd.Execute()
}

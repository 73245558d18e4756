// Package main is the entry point for the retest CLI.
package main

import "retest.dev/pkg/retest/cmd"

func main() {
	cmd.Execute()
}

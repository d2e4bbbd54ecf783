// This program provides a command line client for a node's public API.
package main

import "github.com/ardanlabs/minichain/app/tooling/cli/cmd"

func main() {
	cmd.Execute()
}

// Netscope - structural analysis of weighted undirected networks.
//
// Netscope loads edge lists into an in-memory graph and runs structural
// analyses over it, either from the command line or as an MCP server.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/netscope/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

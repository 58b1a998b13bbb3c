package main

import "github.com/mediactl/mcp-go/cmd"

func main() {
	cmd.Execute()
}

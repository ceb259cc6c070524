package main

import "github.com/agentic-research/gamelist/cmd"

func main() {
	cmd.Execute()
}

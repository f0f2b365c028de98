package main

import "github.com/pfrederiksen/skate-feed/internal/cli"

func main() {
	cli.Execute()
}

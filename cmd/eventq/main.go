package main

import "github.com/marketpulse/eventq/internal/cli"

func main() {
	cli.Execute()
}

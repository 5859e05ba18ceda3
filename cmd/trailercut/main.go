package main

import "github.com/forPelevin/trailercut/internal/cli"

func main() {
	cli.Main()
}

package main

import "github.com/mcoot/racegame-go/internal/cli"

func main() {
	cli.Execute()
}

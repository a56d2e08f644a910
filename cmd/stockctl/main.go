package main

import "github.com/mcoot/stockgame/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/EliasAN1/Stacktictoe/internal/cli"

func main() {
	cli.Execute()
}

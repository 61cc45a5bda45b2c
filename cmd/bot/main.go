package main

import "github.com/bulatfbi/coffee-bot/internal/cli"

func main() {
	cli.Execute()
}

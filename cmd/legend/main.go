package main

import (
	"github.com/tavere/legendgame-go/internal/cli"
)

func main() {
	cli.Execute()
}

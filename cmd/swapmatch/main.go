package main

import (
	"github.com/vietddude/swapmatch/internal/cli"
)

func main() {
	cli.Execute()
}

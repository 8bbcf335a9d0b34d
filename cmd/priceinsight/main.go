package main

import (
	"price-insight/internal/cli"
)

func main() {
	cli.Execute()
}

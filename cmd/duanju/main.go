package main

import (
	"github.com/mchmarny/duanju/pkg/cli"
)

func main() {
	cli.Execute()
}

package main

import "github.com/VanDung-dev/tableio/internal/cli"

func main() {
	cli.Execute()
}

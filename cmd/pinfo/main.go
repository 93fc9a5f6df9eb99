package main

import "github.com/mcoot/playerinfo-proxy/internal/cli"

func main() {
	cli.Execute()
}

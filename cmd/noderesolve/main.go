package main

import "github.com/esm-dev/noderesolve/cli"

func main() {
	cli.Run()
}

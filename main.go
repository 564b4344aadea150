package main

import "github.com/fluxgatelabs/coilscope/cmd"

func main() {
	cmd.Execute()
}

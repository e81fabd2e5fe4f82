package main

import "github.com/emrgen/grantcore/cmd"

func main() {
	cmd.Execute()
}

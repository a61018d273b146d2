package main

import "github.com/secureface/secureface/cmd"

func main() {
	cmd.Execute()
}

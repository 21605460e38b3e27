package main

import "github.com/curaious/workboard/cmd"

func main() {
	cmd.Execute()
}

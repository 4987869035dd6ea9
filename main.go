package main

import "histreader/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/jiemo/player/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/skymarchbot/skymarch/cmd"

func main() {
	cmd.Execute()
}

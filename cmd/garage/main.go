package main

import "github.com/petruce/garage/cmd/garage/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/KaramelBytes/fatigue-cli/cmd"

func main() {
	cmd.Execute()
}

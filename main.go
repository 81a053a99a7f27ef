package main

import "github.com/KaramelBytes/sheetviz/cmd"

func main() {
	cmd.Execute()
}

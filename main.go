package main

import "github.com/GridProtectionAlliance/gsf-sub058/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Tiliavir/timeline-manager/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/browserpilot/gateway/cmd"

func main() {
	cmd.Execute()
}

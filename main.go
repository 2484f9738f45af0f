package main

import "amico-server/cmd"

func main() {
	cmd.Execute()
}

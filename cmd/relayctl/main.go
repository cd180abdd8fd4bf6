package main

import "github.com/blanxlait/kroger-relay/cmd/relayctl/cmd"

func main() {
	cmd.Execute()
}

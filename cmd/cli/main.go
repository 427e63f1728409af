package main

import "order-analysis/cmd/cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/vxoid/rbc/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}

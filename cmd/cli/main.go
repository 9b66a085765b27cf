package main

import "pm2dash/cmd/cli/cmd"

func main() {
	cmd.Execute()
}

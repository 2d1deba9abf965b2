package main

import "github.com/emrgen/boxsync/cmd"

func main() {
	cmd.Execute()
}

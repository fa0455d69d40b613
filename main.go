package main

import "github.com/jetstack/winpass/cmd"

func main() {
	cmd.Execute()
}

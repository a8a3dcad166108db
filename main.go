package main

import "github.com/jjenkins/rtharvest/cmd"

func main() {
	cmd.Execute()
}

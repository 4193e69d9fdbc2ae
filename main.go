package main

import "github.com/seaworthie/casket/cmd"

func main() {
	cmd.Execute()
}

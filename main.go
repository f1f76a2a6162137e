package main

import "github.com/intynet/neti/cmd"

func main() {
	cmd.Execute()
}

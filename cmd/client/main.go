package main

import "github.com/atharvakadlag/excalisave/cmd/client/cmd"

func main() {
	cmd.Execute()
}

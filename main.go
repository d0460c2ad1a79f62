package main

import "github.com/stephnangue/gatehouse/cmd"

func main() {
	cmd.Execute()
}

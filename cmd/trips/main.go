package main

import "my-trips/cmd"

func main() {
	cmd.Run()
}

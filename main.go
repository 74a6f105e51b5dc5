/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/bikerace-engine/cmd"

func main() {
	cmd.Execute()
}

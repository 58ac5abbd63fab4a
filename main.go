package main

import "github.com/hotelops/faceattend/cmd"

func main() {
	cmd.Execute()
}

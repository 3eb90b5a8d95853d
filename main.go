package main

import "github.com/facekit/livematch/cmd"

func main() {
	cmd.Execute()
}

package main

import "bvsynth/pkg/cmd"

func main() {
	cmd.Execute()
}

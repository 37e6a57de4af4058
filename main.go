package main

import "github.com/FluidXR/droidprep/cmd"

func main() {
	cmd.Execute()
}

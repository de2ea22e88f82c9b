package main

import "github.com/OpenTraceLab/trace-eurorack/cmd/trace/cmd"

func main() {
	cmd.Execute()
}

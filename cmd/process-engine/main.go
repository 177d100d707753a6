package main

import "github.com/LENAX/process-engine/pkg/cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/strrl/headview/internal/cmd"

func main() {
	cmd.Execute()
}

// ./main.go
package main

import (
	"github.com/codealphago/ai2thor/cmd"
)

// main is the entry point for the ai2thor controller CLI.
func main() {
	cmd.Execute()
}

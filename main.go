// The main package for the regrade executable.
package main

import (
	"github.com/batchworks/regrade/cmd"
)

func main() {
	cmd.Execute()
}

// Command sainspect reflects and exercises a SQL Anywhere database: it lists
// schemas, describes tables and routines, calls routines with emulated
// output parameters, renders DDL, publishes schema snapshots and serves the
// same operations over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Command extractctl runs the historical map extraction pipeline from
// the command line.
package main

import "github.com/mapwright/extractpipe/internal/cmd"

func main() {
	cmd.Execute()
}

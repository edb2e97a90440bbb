// Command rimctl drives rim collection services from the command line.
package main

import "github.com/mesh-intelligence/rim/internal/cli"

func main() {
	cli.Execute()
}

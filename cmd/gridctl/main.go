// Command gridctl operates the smartgrid kit readiness engine.
package main

import "github.com/mesh-intelligence/smartgrid/internal/cli"

func main() {
	cli.Execute()
}

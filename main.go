// Command pulsar builds self-contained pex archives from BUILD.toml
// target declarations.
package main

import "github.com/magnetarlabs/pulsar/cmd"

func main() {
	cmd.Execute()
}

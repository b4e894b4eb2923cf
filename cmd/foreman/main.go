// Command foreman is the CLI client for a running foremand server.
package main

import (
	"github.com/GoCodeAlone/foreman/internal/cli"
	"github.com/GoCodeAlone/foreman/internal/version"
)

func main() {
	cli.Execute(version.Version)
}

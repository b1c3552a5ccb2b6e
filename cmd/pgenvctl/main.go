// pgenvctl manages embedded PostgreSQL instances from the command line.
package main

import (
	"os"

	"github.com/giantswarm/pgenv/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

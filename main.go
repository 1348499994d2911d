package main

import (
	"os"

	"github.com/mensylisir/tps/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

package main

import (
	"github.com/sidkik/rsyncer/cmd"
	"github.com/sidkik/rsyncer/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}

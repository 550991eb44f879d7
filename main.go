package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/sumicowork/HOYODB/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"os"

	"github.com/askpdf/askpdf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the patient survey service.
package main

import (
	"fmt"
	"os"

	"patientsurvey/pkg/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

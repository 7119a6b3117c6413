package main

import (
	"fmt"
	"os"

	"go-cloud-etl/internal/cli"
)

// @title Cloud ETL API
// @version 1.0
// @description HTTP trigger and run tracking for the sales extract pipeline.
// @BasePath /api
func main() {
	if err := cli.NewServerCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

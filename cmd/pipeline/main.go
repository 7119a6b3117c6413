package main

import "go-cloud-etl/internal/cli"

func main() {
	cli.Execute()
}

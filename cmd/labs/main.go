package main

import "github.com/h1labs/labs/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/i474232898/wxarchive/internal/cli"

func main() {
	cli.Execute()
}

package main

import "clinic/internal/cli"

func main() {
	cli.Execute()
}

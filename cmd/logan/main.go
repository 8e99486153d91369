package main

import "github.com/charliek/logan/internal/cli"

func main() {
	cli.Execute()
}

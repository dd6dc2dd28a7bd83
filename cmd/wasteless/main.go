package main

import "github.com/miiguelriios/WasteLessApp/internal/cli"

func main() {
	cli.Execute()
}

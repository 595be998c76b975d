package main

import "github.com/labkm/labauth/internal/cli"

func main() {
	cli.Execute()
}

package main

import (
	"load-forecast-alerts/internal/cli"
)

func main() {
	cli.Execute()
}

package main

import "cauciones-alerts/internal/cli"

func main() {
	cli.Execute()
}

// main.go - Entry point
package main

import "github.com/sstent/garmin-summary/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/ethanolivertroy/nc-tracker/cmd"

func main() {
	cmd.Execute()
}

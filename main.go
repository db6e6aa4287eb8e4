package main

import "github.com/jmehdipour/optica-notifier/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/frahmantamala/workforce-console/cmd"

func main() {
	cmd.Execute()
}

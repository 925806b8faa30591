package main

import "github.com/cedricziel/readwhere/cmd/readwhere/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/MeKo-Tech/recode/cmd/recode/cmd"

func main() {
	cmd.Execute()
}

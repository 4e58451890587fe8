package main

import "github.com/Norgate-AV/respite/cmd"

func main() {
	cmd.Execute()
}

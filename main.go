package main

import "github.com/ValentinKolb/aspike/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/MeKo-Tech/omrscan/cmd/omrscan/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/sarchlab/greenstep/greenstep/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/theirongolddev/cloudburn/cmd"

func main() {
	cmd.Execute()
}

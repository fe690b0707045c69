package main

import (
	"github.com/lookout-vision/lookout/cmd/lookout/cmd"
)

func main() {
	cmd.Execute()
}

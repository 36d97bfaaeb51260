package main

import (
	"github.com/wppweb/gateway/cmd"
)

func main() {
	cmd.Execute()
}

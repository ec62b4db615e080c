package main

import (
	"fmt"
	"os"

	"github.com/vkviyu/wsbridge/cmd"
)

func main() {
	if err := cmd.NewWsBridgeCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wsbridge:", err)
		os.Exit(1)
	}
}

package main

import (
	"github.com/maxgio92/xperfasm/pkg/cmd"
)

func main() {
	cmd.Execute()
}

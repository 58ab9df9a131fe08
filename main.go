package main

import (
	"github.com/ColonelBlimp/cwcodec/cmd"
	"github.com/ColonelBlimp/cwcodec/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}

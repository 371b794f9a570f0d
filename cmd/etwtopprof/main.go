package main

import (
	"github.com/google/etwtopprof/internal/cmd"
)

func main() {
	cmd.Execute()
}

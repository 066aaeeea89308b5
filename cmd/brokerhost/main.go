package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var notConverged *notConvergedError
		if !errors.As(err, &notConverged) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

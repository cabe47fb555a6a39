package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// usageError marks bad invocations so main can exit with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func printBanner() {
	banner := `
 ____       _   _ _     _   ____  _   _    _
/ ___|  ___| |_| (_)___| |_|  _ \| \ | |  / \
\___ \ / _ \ __| | / __| __| | | |  \| | / _ \
 ___) |  __/ |_| | \__ \ |_| |_| | |\  |/ ___ \
|____/ \___|\__|_|_|___/\__|____/|_| \_/_/   \_\

        DJ Set Tracklist Generator
`
	fmt.Fprintln(os.Stderr, banner)
}

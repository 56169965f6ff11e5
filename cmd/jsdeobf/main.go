// Command jsdeobf is a thin CLI shell around package deobf, the same way
// the teacher's soyweb command is a thin shell around soy.Bundle.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

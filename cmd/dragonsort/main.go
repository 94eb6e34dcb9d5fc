// Command dragonsort drives the DRAGON coincidence-matching core over a
// file of framed events, for replay, demo, and integration-test use
// outside the live MIDAS front end.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

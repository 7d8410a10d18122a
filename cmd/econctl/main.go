// Command econctl runs admin operations directly against the configured
// account store, without going through the HTTP API.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

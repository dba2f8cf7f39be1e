// Command veilscan runs the OSINT privacy scanner: an HTTP API server, a
// one-shot CLI scan, and a retention sweep.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

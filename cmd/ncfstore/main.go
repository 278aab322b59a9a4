// Command ncfstore queries NCF and Parquet files, converts data to NCF and
// serves the event store over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

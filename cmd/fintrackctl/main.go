// Command fintrackctl administers a fintrack ledger: schema, demo data,
// accounts, reports and CSV exports.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cacmd is the baseline normalization and drift detection daemon for
// CIP-010-4 compliance monitoring.
package main

import "github.com/cacmlabs/cacm/internal/cli"

func main() {
	cli.Execute()
}

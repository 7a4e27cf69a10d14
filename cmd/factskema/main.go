// Command factskema validates logic-program facts against YAML schemas.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errIssues) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// Command autumndb-types generates Go structs from registered contract
// types, so callers get typed accessors for a contract's data payload
// instead of hand-decoding json.RawMessage.
package main

import (
	"fmt"
	"os"

	"github.com/autumndb/autumndb/tools/cli/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

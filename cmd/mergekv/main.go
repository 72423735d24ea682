// Command mergekv merges integer deltas into counters kept in a
// local kv store.
//
//	mergekv --driver bbolt --path counters.db merge a=3 b=-2
//	mergekv --driver bbolt --path counters.db get a b
package main

import (
	"os"

	flags "github.com/jessevdk/go-flags"
)

func main() {
	var options Options
	var parser = flags.NewParser(&options, flags.Default)

	parser.AddCommand("merge", "Merge deltas", "Merge key=delta pairs and print each key's previous and new value", &mergeCommand{options: &options})
	parser.AddCommand("get", "Read counters", "Print the value of each key", &getCommand{options: &options})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			os.Exit(1)
		}
	}
}

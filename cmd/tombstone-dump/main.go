package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vietddude/crashwatch/internal/tombstone"
)

func main() {
	mte := flag.Bool("mte", false, "Render the memory tagging status line")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tombstone-dump [-mte] <tombstone file>")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	t, err := tombstone.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to decode tombstone: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tombstone.Render(t, *mte))
}

package main

import (
	"fmt"
	"os"

	"github.com/blockedby/listings-os/internal/profiles"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("No files to check.")
		os.Exit(0)
	}

	failed := false
	for _, path := range os.Args[1:] {
		loaded, err := profiles.Load(path)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("✅ %s is valid (%d profiles)\n", path, len(loaded))
	}

	if failed {
		os.Exit(1)
	}
}

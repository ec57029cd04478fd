// Command validate checks prompt template YAML files without starting
// the server.
//
// Usage:
//
//	validate <file-or-directory> [...]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/maduarte95/arena-test/pkg/prompts"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: validate <file-or-directory> [...]")
		os.Exit(2)
	}

	failed := 0
	for _, arg := range os.Args[1:] {
		info, err := os.Stat(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, err)
			failed++
			continue
		}

		if info.IsDir() {
			failed += validateDir(arg)
			continue
		}
		if !validateFile(arg) {
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d template(s) failed validation\n", failed)
		os.Exit(1)
	}
}

func validateDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", dir, err)
		return 1
	}

	failed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if !validateFile(filepath.Join(dir, entry.Name())) {
			failed++
		}
	}
	return failed
}

func validateFile(path string) bool {
	tmpl, err := prompts.LoadTemplate(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
		return false
	}
	fmt.Printf("ok   %s (%s: %s)\n", path, tmpl.Role, tmpl.Name)
	return true
}

// Command import_books bulk-loads a book catalog into the review service.
// The catalog is a JSON array of {title, author, published, description};
// each entry is posted under the logged-in account, skipping entries the
// service rejects so one bad row does not abort the run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"bookreview-cli/bookreview"

	"golang.org/x/term"
)

type catalogEntry struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Published   string `json:"published"`
	Description string `json:"description"`
}

func main() {
	catalogPath := flag.String("catalog", "catalog.json", "path to the catalog JSON file")
	username := flag.String("user", "", "account to post the books under")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		os.Exit(1)
	}

	entries, err := readCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Importing %d books from %s...\n", len(entries), *catalogPath)

	cfg, err := bookreview.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	mgr, err := bookreview.NewManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password for %s: ", *username)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if _, err := mgr.LogIn(ctx, *username, strings.TrimSpace(string(bytePassword))); err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}

	var imported, skipped int
	for _, e := range entries {
		book, err := mgr.CreateBook(ctx, e.Title, e.Author, e.Published, e.Description)
		if err != nil {
			fmt.Printf("  skipped %q: %v\n", e.Title, err)
			skipped++
			continue
		}
		fmt.Printf("  imported %q by %s (id %d)\n", book.Title, book.Author, book.ID)
		imported++
	}
	fmt.Printf("Done: %d imported, %d skipped.\n", imported, skipped)
	if skipped > 0 {
		os.Exit(1)
	}
}

func readCatalog(path string) ([]catalogEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []catalogEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return entries, nil
}

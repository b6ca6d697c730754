package main

import (
	"context"
	"fmt"
	"log"

	"github.com/osintscope/eventsearch/internal/discover"
)

func main() {
	provider := &discover.File{Path: "./fixtures/offline-articles.json"}

	// Query that should match the fixture entries
	query := "fire at the container terminal"
	urls, err := provider.Discover(context.Background(), query, 10)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Query: %s\n", query)
	fmt.Printf("Results: %d\n", len(urls))
	for i, u := range urls {
		fmt.Printf("%d. %s\n", i+1, u)
	}

	// Also test with a simpler query
	fmt.Println("---")
	query2 := "fire"
	urls2, err := provider.Discover(context.Background(), query2, 10)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Query: %s\n", query2)
	fmt.Printf("Results: %d\n", len(urls2))
	for i, u := range urls2 {
		fmt.Printf("%d. %s\n", i+1, u)
	}
}

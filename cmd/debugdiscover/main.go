package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/osintscope/eventsearch/internal/discover"
	"github.com/osintscope/eventsearch/internal/fetch"
	"github.com/osintscope/eventsearch/internal/ratelimit"
	"github.com/osintscope/eventsearch/internal/sources"
)

// Quick check of one source's discovery stage: prints the article URLs a
// query yields without running extraction or the LLM.
func main() {
	path := os.Getenv("SOURCES_CONFIG_PATH")
	if path == "" {
		path = "sources.yaml"
	}
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: debugdiscover <source-name> <query>")
		os.Exit(2)
	}
	name, query := os.Args[1], os.Args[2]

	reg, err := sources.Load(path)
	if err != nil {
		fmt.Println("err:", err)
		os.Exit(1)
	}
	src, ok := reg.ByName(name)
	if !ok {
		fmt.Printf("unknown source %q in %s\n", name, path)
		os.Exit(1)
	}

	var prov discover.Provider
	if src.APIBased {
		prov = &discover.API{APIKey: os.Getenv("GOOGLE_CSE_API_KEY"), EngineID: os.Getenv("GOOGLE_CSE_ID")}
	} else {
		prov = &discover.HTML{
			Fetcher: &fetch.Client{Limiter: ratelimit.New(), Timeout: 20 * time.Second},
			Source:  src,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	urls, err := prov.Discover(ctx, query, 10)
	fmt.Println("err:", err)
	for i, u := range urls {
		fmt.Printf("%d. %s\n", i+1, u)
	}
}

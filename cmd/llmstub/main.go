// Command llmstub is a tiny OpenAI-compatible server returning canned
// extraction responses. Point OLLAMA_BASE_URL at it to exercise the whole
// pipeline without a real model.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "stub-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := ""
		for _, m := range req.Messages {
			prompt += m.Content + "\n"
		}
		if !strings.Contains(prompt, "ARTICLE TITLE:") {
			http.Error(w, "unexpected prompt", http.StatusBadRequest)
			return
		}

		title := articleTitle(prompt)
		event := map[string]any{
			"event_type":    guessType(prompt),
			"summary":       "Stub extraction for article: " + title + ". Generated for pipeline testing only. No real analysis was performed.",
			"location":      nil,
			"event_date":    "2025-01-01",
			"individuals":   []string{},
			"organizations": []string{},
			"casualties":    nil,
			"confidence":    0.9,
		}
		b, _ := json.Marshal(event)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(b)}},
			},
			"usage": map[string]int{"prompt_tokens": 128, "completion_tokens": 64, "total_tokens": 192},
		})
	})

	log.Printf("llmstub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func articleTitle(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if after, ok := strings.CutPrefix(line, "ARTICLE TITLE: "); ok {
			return strings.TrimSpace(after)
		}
	}
	return "untitled"
}

func guessType(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "protest") || strings.Contains(p, "demonstration"):
		return "protest"
	case strings.Contains(p, "bomb") || strings.Contains(p, "explosion"):
		return "bombing"
	case strings.Contains(p, "shooting") || strings.Contains(p, "attack"):
		return "attack"
	case strings.Contains(p, "military") || strings.Contains(p, "troops"):
		return "military_operation"
	case strings.Contains(p, "fire") || strings.Contains(p, "crash") || strings.Contains(p, "flood"):
		return "accident"
	default:
		return "other"
	}
}

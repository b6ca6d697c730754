package devops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func loadCompose(t *testing.T) map[string]any {
	t.Helper()
	root := findRepoRoot(t)
	b, err := os.ReadFile(filepath.Join(root, "docker-compose.yml"))
	if err != nil {
		t.Fatalf("read compose: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	return doc
}

func service(t *testing.T, doc map[string]any, name string) map[string]any {
	t.Helper()
	services, ok := doc["services"].(map[string]any)
	if !ok {
		t.Fatalf("services missing or wrong type")
	}
	svc, ok := services[name].(map[string]any)
	if !ok {
		t.Fatalf("%s service missing", name)
	}
	return svc
}

// The server service must publish the API port, reach Ollama over the
// compose network and wait for it to become healthy. Static config check,
// no Docker required.
func TestCompose_ServerService(t *testing.T) {
	doc := loadCompose(t)
	srv := service(t, doc, "eventsearchd")

	ports, _ := srv["ports"].([]any)
	foundPort := false
	for _, p := range ports {
		if s, ok := p.(string); ok && strings.Contains(s, "8000") {
			foundPort = true
		}
	}
	if !foundPort {
		t.Fatalf("eventsearchd should publish port 8000; ports=%v", ports)
	}

	env, _ := srv["environment"].(map[string]any)
	if env == nil {
		t.Fatalf("eventsearchd environment missing")
	}
	base, _ := env["OLLAMA_BASE_URL"].(string)
	if !strings.Contains(base, "ollama") {
		t.Fatalf("OLLAMA_BASE_URL should point at the ollama service, got %q", base)
	}
	if _, ok := env["SOURCES_CONFIG_PATH"]; !ok {
		t.Fatalf("SOURCES_CONFIG_PATH missing from environment")
	}

	deps, _ := srv["depends_on"].(map[string]any)
	dep, _ := deps["ollama"].(map[string]any)
	cond, _ := dep["condition"].(string)
	if cond != "service_healthy" {
		t.Fatalf("eventsearchd should depend on ollama service_healthy, got %q", cond)
	}
}

// Ollama needs a healthcheck (the server gates startup on it) and a model
// volume so pulls survive restarts.
func TestCompose_OllamaService(t *testing.T) {
	doc := loadCompose(t)
	ollama := service(t, doc, "ollama")

	image, _ := ollama["image"].(string)
	if !strings.HasPrefix(image, "ollama/ollama:") {
		t.Fatalf("ollama image should be pinned to a tag, got %q", image)
	}
	if _, ok := ollama["healthcheck"].(map[string]any); !ok {
		t.Fatalf("ollama healthcheck missing")
	}

	vols, ok := doc["volumes"].(map[string]any)
	if !ok {
		t.Fatalf("top-level volumes missing")
	}
	if _, ok := vols["ollama_models"]; !ok {
		t.Fatalf("ollama_models volume not defined")
	}
}

// The stub server stays out of default bring-up; it runs only under the
// test profile.
func TestCompose_StubUnderTestProfile(t *testing.T) {
	doc := loadCompose(t)
	stub := service(t, doc, "llmstub")

	profiles, _ := stub["profiles"].([]any)
	found := false
	for _, p := range profiles {
		if s, ok := p.(string); ok && s == "test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("llmstub should carry the test profile, got %v", profiles)
	}

	entry, _ := stub["entrypoint"].([]any)
	foundBin := false
	for _, e := range entry {
		if s, ok := e.(string); ok && strings.Contains(s, "llmstub") {
			foundBin = true
		}
	}
	if !foundBin {
		t.Fatalf("llmstub entrypoint should run the stub binary, got %v", entry)
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatalf("could not locate repo root with go.mod")
	return ""
}

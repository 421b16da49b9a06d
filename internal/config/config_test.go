package config

import "testing"

func TestCodeEmbedderGetters(t *testing.T) {
	cfg := &Config{
		OllamaModel: "nomic-embed-text",
		OpenAIModel: "text-embedding-3-large",
	}

	if got := cfg.GetCodeOllamaModel(); got != "nomic-embed-text" {
		t.Errorf("GetCodeOllamaModel() = %q, want %q", got, "nomic-embed-text")
	}
	if got := cfg.GetCodeOpenAIModel(); got != "text-embedding-3-large" {
		t.Errorf("GetCodeOpenAIModel() = %q, want %q", got, "text-embedding-3-large")
	}
	if cfg.HasCodeSpecificEmbedder() {
		t.Error("HasCodeSpecificEmbedder() = true, want false")
	}
}

func TestCodeEmbedderGettersWithOverrides(t *testing.T) {
	cfg := &Config{
		OllamaModel:     "nomic-embed-text",
		OpenAIModel:     "text-embedding-3-large",
		CodeOllamaModel: "jina/jina-embeddings-v2-base-code",
		CodeOpenAIModel: "text-embedding-3-small",
	}

	if got := cfg.GetCodeOllamaModel(); got != "jina/jina-embeddings-v2-base-code" {
		t.Errorf("GetCodeOllamaModel() = %q, want %q", got, "jina/jina-embeddings-v2-base-code")
	}
	if got := cfg.GetCodeOpenAIModel(); got != "text-embedding-3-small" {
		t.Errorf("GetCodeOpenAIModel() = %q, want %q", got, "text-embedding-3-small")
	}
	if !cfg.HasCodeSpecificEmbedder() {
		t.Error("HasCodeSpecificEmbedder() = false, want true")
	}
}

func TestCodeEmbedderGettersPartialOverride(t *testing.T) {
	cfg := &Config{
		OllamaModel:     "nomic-embed-text",
		OpenAIModel:     "text-embedding-3-large",
		CodeOllamaModel: "jina/jina-embeddings-v2-base-code",
	}

	if got := cfg.GetCodeOllamaModel(); got != "jina/jina-embeddings-v2-base-code" {
		t.Errorf("GetCodeOllamaModel() = %q, want %q", got, "jina/jina-embeddings-v2-base-code")
	}
	if got := cfg.GetCodeOpenAIModel(); got != "text-embedding-3-large" {
		t.Errorf("GetCodeOpenAIModel() = %q, want %q", got, "text-embedding-3-large")
	}
	if !cfg.HasCodeSpecificEmbedder() {
		t.Error("HasCodeSpecificEmbedder() = false, want true")
	}
}

func TestValidateRequiresAnEmbedderAndAStore(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for empty config")
	}

	cfg = &Config{OllamaModel: "nomic-embed-text", DbPath: "./felix.db"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	cfg = &Config{OpenAIKey: "sk-test", SurrealDBURL: "ws://localhost:8000"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			APIKey: "test-key",
		},
		Image: ImageConfig{ModelPath: "models/clip_visual.onnx"},
		Data: DataConfig{
			ListingsFile: "data/listings.csv",
			PicturesFile: "data/pictures.csv",
			PicturesDir:  "data/pictures",
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding api key")
	}
}

func TestValidate_MissingModelPath(t *testing.T) {
	cfg := validConfig()
	cfg.Image.ModelPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing image model path")
	}
}

func TestValidate_MissingExtracts(t *testing.T) {
	cfg := validConfig()
	cfg.Data.PicturesDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing extract paths")
	}
}

func TestValidate_NegativeCandidateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Search.CandidateLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative candidate limit")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Database.Driver != "redis" {
		t.Errorf("expected default driver redis, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected default readiness timeout 10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Storage.KeyPrefix != "homevec:" {
		t.Errorf("expected default key prefix, got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected default text dimensions 1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Image.Dimensions != 512 {
		t.Errorf("expected default image dimensions 512, got %d", cfg.Image.Dimensions)
	}
	if cfg.Data.BatchSize != 16 {
		t.Errorf("expected default batch size 16, got %d", cfg.Data.BatchSize)
	}
	if cfg.Search.CandidateLimit != 0 {
		t.Errorf("candidate limit default must stay adaptive (0), got %d", cfg.Search.CandidateLimit)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("HOMEVEC_TEST_KEY", "secret")
	defer os.Unsetenv("HOMEVEC_TEST_KEY")

	in := []byte("api_key: ${HOMEVEC_TEST_KEY}\nmodel: ${HOMEVEC_TEST_MODEL:-text-embedding-3-small}\n")
	out := string(expandEnvVars(in))

	if out != "api_key: secret\nmodel: text-embedding-3-small\n" {
		t.Errorf("unexpected expansion:\n%s", out)
	}
}

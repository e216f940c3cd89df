// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docraptor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docraptor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CRAWL4AI_API_KEY", "")
	t.Setenv("WEAVIATE_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11235", cfg.Crawler.URL)
	assert.Equal(t, 60*time.Second, cfg.Crawler.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Crawler.CheckInterval)
	assert.Equal(t, 100, cfg.Crawler.MaxPages)
	assert.Equal(t, "Documentation", cfg.Weaviate.ClassName)
	assert.Equal(t, 30*time.Second, cfg.Weaviate.Timeout)
	assert.Equal(t, 120*time.Second, cfg.AI.RequestTimeout)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 1000, cfg.Ingestion.SummaryMaxTokens)
	assert.Equal(t, 3, cfg.Ingestion.HierarchyLevels)
	assert.Equal(t, core.ContinueOnError, cfg.FailurePolicy())
}

func TestLoad_File(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
crawler:
  url: http://crawl4ai:11235
  check_interval: 2s
weaviate:
  url: http://weaviate:8080
  no_fallback: true
ai:
  host: http://ollama:11434
  summary_model: qwen2.5:14b
  requests_per_second: 2.5
cache:
  backend: redis
  redis_url: redis://cache:6379/0
  ttl: 10m
ingestion:
  chunk_size: 4
  fail_fast: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://crawl4ai:11235", cfg.Crawler.URL)
	assert.Equal(t, 2*time.Second, cfg.Crawler.CheckInterval)
	assert.Equal(t, 60*time.Second, cfg.Crawler.Timeout, "unset fields keep defaults")
	assert.True(t, cfg.Weaviate.NoFallback)
	assert.Equal(t, "qwen2.5:14b", cfg.AI.SummaryModel)
	assert.Equal(t, 2.5, cfg.AI.RequestsPerSecond)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Ingestion.ChunkSize)
	assert.Equal(t, core.FailFast, cfg.FailurePolicy())

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://ollama:11434/v1", aiCfg.CompletionHost)
	assert.Equal(t, "http://ollama:11434/v1", aiCfg.EmbeddingHost)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CRAWL4AI_API_KEY", "crawl-key")
	t.Setenv("WEAVIATE_API_KEY", "weaviate-key")

	cfg, err := Load(writeConfig(t, "ai:\n  api_key: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "sk-test", cfg.Weaviate.OpenAIKey)
	assert.Equal(t, "crawl-key", cfg.Crawler.APIKey)
	assert.Equal(t, "weaviate-key", cfg.Weaviate.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "crawler: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache:\n  backend: memcached\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := NewConfig()
	cfg.Crawler.URL = ""
	cfg.Ingestion.ChunkSize = 0
	cfg.Ingestion.SummaryMaxTokens = 1
	cfg.Cache.Backend = CacheRedis

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawler.url")
	assert.Contains(t, err.Error(), "ingestion.chunk_size")
	assert.Contains(t, err.Error(), "cache.redis_url")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := NewConfig()
	cfg.Ingestion.HierarchyLevels = 2
	cfg.Cache.Backend = CacheNone

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Ingestion.HierarchyLevels)
	assert.Equal(t, CacheNone, loaded.Cache.Backend)
}

package config

// Config represents the complete coderag configuration. It can be loaded
// from .coderag/config.yml with environment variable overrides.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Ingestion IngestionConfig `yaml:"ingestion" mapstructure:"ingestion"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Reranker  RerankerConfig  `yaml:"reranker" mapstructure:"reranker"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Context   ContextConfig   `yaml:"context" mapstructure:"context"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`     // "local" or "openai"
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`     // provider HTTP endpoint
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`       // bearer token, openai provider only
	Model      string `yaml:"model" mapstructure:"model"`           // provider-specific model name
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // must equal the provider's dimension
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// IngestionConfig governs which files are chunked and how.
type IngestionConfig struct {
	Code              []string `yaml:"code" mapstructure:"code"`                                   // glob patterns for source files
	Docs              []string `yaml:"docs" mapstructure:"docs"`                                   // glob patterns for documentation
	Exclude           []string `yaml:"exclude" mapstructure:"exclude"`                             // glob patterns skipped by the chunker
	MaxTokensPerChunk int      `yaml:"max_tokens_per_chunk" mapstructure:"max_tokens_per_chunk"`
}

// SearchConfig configures hybrid search defaults.
type SearchConfig struct {
	TopK         int     `yaml:"top_k" mapstructure:"top_k"`
	VectorWeight float64 `yaml:"vector_weight" mapstructure:"vector_weight"`
	BM25Weight   float64 `yaml:"bm25_weight" mapstructure:"bm25_weight"`
}

// RerankerConfig configures the optional reranking step.
type RerankerConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider string `yaml:"provider" mapstructure:"provider"` // "none" or "http"
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	TopN     int    `yaml:"top_n" mapstructure:"top_n"`
}

// StorageConfig locates the on-disk index artifacts.
type StorageConfig struct {
	Path        string `yaml:"path" mapstructure:"path"` // project-relative root, rejects escapes
	SQLiteFile  string `yaml:"sqlite_file" mapstructure:"sqlite_file"`
	LexicalFile string `yaml:"lexical_file" mapstructure:"lexical_file"`
	GraphFile   string `yaml:"graph_file" mapstructure:"graph_file"`
}

// ContextConfig bounds the context expander.
type ContextConfig struct {
	MaxRelated int `yaml:"max_related" mapstructure:"max_related"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Endpoint:   "http://127.0.0.1:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BatchSize:  64,
		},
		Ingestion: IngestionConfig{
			Code: []string{
				"**/*.go",
				"**/*.ts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
				"**/*.py",
				"**/*.rs",
				"**/*.c",
				"**/*.cpp",
				"**/*.cc",
				"**/*.h",
				"**/*.hpp",
				"**/*.java",
				"**/*.rb",
			},
			Docs: []string{
				"**/*.md",
				"**/*.mdx",
			},
			Exclude: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"*.pyc",
			},
			MaxTokensPerChunk: 512,
		},
		Search: SearchConfig{
			TopK:         10,
			VectorWeight: 0.7,
			BM25Weight:   0.3,
		},
		Reranker: RerankerConfig{
			Enabled:  false,
			Provider: "none",
			TopN:     20,
		},
		Storage: StorageConfig{
			Path:        ".coderag",
			SQLiteFile:  "index.db",
			LexicalFile: "lexical.json",
			GraphFile:   "graph.json",
		},
		Context: ContextConfig{
			MaxRelated: 10,
		},
	}
}

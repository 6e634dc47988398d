package settings

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddFlags registers one flag per setting, defaulted from NewSettings.
// Flag names double as viper keys, so BIONET_AI_ENGINE or an `ai-engine`
// entry in the config file override the default.
func AddFlags(fs *pflag.FlagSet) {
	d := NewSettings()

	fs.String("ai-api-type", string(d.Chat.ApiType), "Chat API type (openai, ollama)")
	fs.String("ai-engine", d.Chat.Engine, "Chat model")
	fs.Float64("ai-temperature", d.Chat.Temperature, "Sampling temperature")
	fs.Float64("ai-top-p", d.Chat.TopP, "Top-p sampling")
	fs.Int("ai-max-response-tokens", d.Chat.MaxResponseTokens, "Maximum response tokens")
	fs.Duration("ai-timeout", d.Chat.Timeout, "Timeout for a single engine call")

	fs.String("openai-api-key", "", "OpenAI API key")
	fs.String("openai-base-url", d.API.OpenAIBaseURL, "OpenAI base URL")
	fs.String("ollama-base-url", d.API.OllamaBaseURL, "Ollama base URL")
	fs.String("cohere-api-key", "", "Cohere API key")
	fs.String("cohere-base-url", d.API.CohereBaseURL, "Cohere API base URL")

	fs.String("embeddings-type", string(d.Embeddings.Type), "Embeddings provider (openai, ollama, cohere)")
	fs.String("embeddings-engine", d.Embeddings.Engine, "Embeddings model")
	fs.Int("embeddings-dimensions", d.Embeddings.Dimensions, "Embedding dimensions")
	fs.String("embeddings-cache-type", string(d.Embeddings.CacheType), "Embedding cache (none, memory, disk)")
	fs.Int("embeddings-cache-size", d.Embeddings.CacheSize, "In-memory embedding cache entries")
	fs.String("embeddings-cache-directory", d.Embeddings.CacheDirectory, "Disk cache directory (default ~/.bionet/cache/embeddings/<model>)")
	fs.Int("embeddings-cache-max-entries", d.Embeddings.CacheMaxEntries, "Maximum disk cache entries")
	fs.Int64("embeddings-cache-max-bytes", d.Embeddings.CacheMaxBytes, "Maximum disk cache size in bytes")
	fs.Int("embeddings-concurrency", d.Embeddings.Concurrency, "Parallel embedding requests while indexing")

	fs.StringSlice("index-extensions", d.Index.Extensions, "File extensions to index")
	fs.StringSlice("index-exclude", d.Index.Exclude, "Glob patterns of files to skip")
	fs.Int("index-chunk-size", d.Index.ChunkSize, "Chunk size in tokens")
	fs.Int("index-chunk-overlap", d.Index.ChunkOverlap, "Chunk overlap in tokens")
	fs.Int("index-top-k", d.Index.TopK, "Chunks retrieved per query")
	fs.Float64("index-semantic-weight", d.Index.SemanticWeight, "Weight of vector similarity in hybrid retrieval")
	fs.Float64("index-keyword-weight", d.Index.KeywordWeight, "Weight of keyword score in hybrid retrieval")
	fs.String("index-reranker", string(d.Index.Reranker), "Reranker applied to retrieved chunks (cohere, empty for none)")
	fs.String("index-rerank-model", d.Index.RerankModel, "Rerank model")
	fs.Int("index-rerank-candidates", d.Index.RerankCandidates, "Fused candidates handed to the reranker")

	fs.Int("memory-window", d.Agent.MemoryWindow, "Exchanges kept in conversation memory")
	fs.Int("max-steps", d.Agent.MaxSteps, "Maximum planning steps per turn")
	fs.Int("max-parse-retries", d.Agent.MaxParseRetries, "Corrective re-prompts after malformed engine output")
	fs.Duration("turn-timeout", d.Agent.TurnTimeout, "Timeout for a whole turn (0 disables)")
	fs.String("planner-mode", string(d.Agent.PlannerMode), "Planner mode (react, functions)")

	fs.String("search-provider", d.Tools.SearchProvider, "Web search provider (serpapi, kagi)")
	fs.String("serpapi-api-key", "", "SerpAPI key")
	fs.String("kagi-api-key", "", "Kagi API key")
	fs.String("blast-base-url", d.Tools.BlastBaseURL, "NCBI BLAST URL API endpoint")
	fs.String("blast-program", d.Tools.BlastProgram, "BLAST program")
	fs.String("blast-database", d.Tools.BlastDatabase, "BLAST database")
	fs.Duration("blast-poll-interval", d.Tools.BlastPollInterval, "Interval between BLAST status checks")
	fs.Duration("blast-timeout", d.Tools.BlastTimeout, "Maximum time to wait for a BLAST search")
	fs.Duration("calculator-timeout", d.Tools.CalculatorTimeout, "Maximum evaluation time for calculator expressions")
}

// FromViper reads the settings registered by AddFlags.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := NewSettings()

	s.Chat.ApiType = ApiType(v.GetString("ai-api-type"))
	s.Chat.Engine = v.GetString("ai-engine")
	s.Chat.Temperature = v.GetFloat64("ai-temperature")
	s.Chat.TopP = v.GetFloat64("ai-top-p")
	s.Chat.MaxResponseTokens = v.GetInt("ai-max-response-tokens")
	s.Chat.Timeout = v.GetDuration("ai-timeout")

	s.API.OpenAIAPIKey = v.GetString("openai-api-key")
	s.API.OpenAIBaseURL = v.GetString("openai-base-url")
	s.API.OllamaBaseURL = v.GetString("ollama-base-url")
	s.API.CohereAPIKey = v.GetString("cohere-api-key")
	s.API.CohereBaseURL = v.GetString("cohere-base-url")

	s.Embeddings.Type = ApiType(v.GetString("embeddings-type"))
	s.Embeddings.Engine = v.GetString("embeddings-engine")
	s.Embeddings.Dimensions = v.GetInt("embeddings-dimensions")
	s.Embeddings.CacheType = CacheType(v.GetString("embeddings-cache-type"))
	s.Embeddings.CacheSize = v.GetInt("embeddings-cache-size")
	s.Embeddings.CacheDirectory = v.GetString("embeddings-cache-directory")
	s.Embeddings.CacheMaxEntries = v.GetInt("embeddings-cache-max-entries")
	s.Embeddings.CacheMaxBytes = v.GetInt64("embeddings-cache-max-bytes")
	s.Embeddings.Concurrency = v.GetInt("embeddings-concurrency")

	s.Index.Extensions = v.GetStringSlice("index-extensions")
	s.Index.Exclude = v.GetStringSlice("index-exclude")
	s.Index.ChunkSize = v.GetInt("index-chunk-size")
	s.Index.ChunkOverlap = v.GetInt("index-chunk-overlap")
	s.Index.TopK = v.GetInt("index-top-k")
	s.Index.SemanticWeight = v.GetFloat64("index-semantic-weight")
	s.Index.KeywordWeight = v.GetFloat64("index-keyword-weight")
	s.Index.Reranker = ApiType(v.GetString("index-reranker"))
	s.Index.RerankModel = v.GetString("index-rerank-model")
	s.Index.RerankCandidates = v.GetInt("index-rerank-candidates")

	s.Agent.MemoryWindow = v.GetInt("memory-window")
	s.Agent.MaxSteps = v.GetInt("max-steps")
	s.Agent.MaxParseRetries = v.GetInt("max-parse-retries")
	s.Agent.TurnTimeout = v.GetDuration("turn-timeout")
	s.Agent.PlannerMode = PlannerMode(v.GetString("planner-mode"))

	s.Tools.SearchProvider = v.GetString("search-provider")
	s.Tools.SerpAPIKey = v.GetString("serpapi-api-key")
	s.Tools.KagiAPIKey = v.GetString("kagi-api-key")
	s.Tools.BlastBaseURL = v.GetString("blast-base-url")
	s.Tools.BlastProgram = v.GetString("blast-program")
	s.Tools.BlastDatabase = v.GetString("blast-database")
	s.Tools.BlastPollInterval = v.GetDuration("blast-poll-interval")
	s.Tools.BlastTimeout = v.GetDuration("blast-timeout")
	s.Tools.CalculatorTimeout = v.GetDuration("calculator-timeout")

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

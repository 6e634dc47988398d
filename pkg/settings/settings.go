package settings

import (
	"time"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

type ApiType string

const (
	ApiTypeOpenAI ApiType = "openai"
	ApiTypeOllama ApiType = "ollama"
	// ApiTypeCohere is only available for embeddings and reranking.
	ApiTypeCohere ApiType = "cohere"
)

// CacheType selects where computed embeddings are kept.
type CacheType string

const (
	CacheTypeNone   CacheType = "none"
	CacheTypeMemory CacheType = "memory"
	CacheTypeDisk   CacheType = "disk"
)

type ChatSettings struct {
	ApiType           ApiType       `yaml:"api_type"`
	Engine            string        `yaml:"engine"`
	Temperature       float64       `yaml:"temperature"`
	TopP              float64       `yaml:"top_p"`
	MaxResponseTokens int           `yaml:"max_response_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
}

type APISettings struct {
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`
	CohereAPIKey  string `yaml:"-"`
	CohereBaseURL string `yaml:"cohere_base_url,omitempty"`
}

// EmbeddingsSettings configures the embeddings provider. An empty
// CacheDirectory means ~/.bionet/cache/embeddings/<model>.
type EmbeddingsSettings struct {
	Type            ApiType   `yaml:"type"`
	Engine          string    `yaml:"engine"`
	Dimensions      int       `yaml:"dimensions"`
	CacheType       CacheType `yaml:"cache_type"`
	CacheSize       int       `yaml:"cache_size"`
	CacheDirectory  string    `yaml:"cache_directory,omitempty"`
	CacheMaxEntries int       `yaml:"cache_max_entries"`
	CacheMaxBytes   int64     `yaml:"cache_max_bytes"`
	Concurrency     int       `yaml:"concurrency"`
}

// IndexSettings configures indexing and retrieval. Reranker is empty or
// "cohere".
type IndexSettings struct {
	Extensions       []string `yaml:"extensions"`
	Exclude          []string `yaml:"exclude,omitempty"`
	ChunkSize        int      `yaml:"chunk_size"`
	ChunkOverlap     int      `yaml:"chunk_overlap"`
	TopK             int      `yaml:"top_k"`
	SemanticWeight   float64  `yaml:"semantic_weight"`
	KeywordWeight    float64  `yaml:"keyword_weight"`
	Reranker         ApiType  `yaml:"reranker,omitempty"`
	RerankModel      string   `yaml:"rerank_model,omitempty"`
	RerankCandidates int      `yaml:"rerank_candidates,omitempty"`
}

// PlannerMode selects how the engine reports its chosen action.
type PlannerMode string

const (
	// PlannerModeReact asks for a JSON action blob in free text.
	PlannerModeReact PlannerMode = "react"
	// PlannerModeFunctions uses the provider's native function calling.
	PlannerModeFunctions PlannerMode = "functions"
)

type AgentSettings struct {
	MemoryWindow    int           `yaml:"memory_window"`
	MaxSteps        int           `yaml:"max_steps"`
	MaxParseRetries int           `yaml:"max_parse_retries"`
	TurnTimeout     time.Duration `yaml:"turn_timeout"`
	PlannerMode     PlannerMode   `yaml:"planner_mode"`
}

type ToolSettings struct {
	SearchProvider    string        `yaml:"search_provider"`
	SerpAPIKey        string        `yaml:"-"`
	KagiAPIKey        string        `yaml:"-"`
	BlastBaseURL      string        `yaml:"blast_base_url"`
	BlastProgram      string        `yaml:"blast_program"`
	BlastDatabase     string        `yaml:"blast_database"`
	BlastPollInterval time.Duration `yaml:"blast_poll_interval"`
	BlastTimeout      time.Duration `yaml:"blast_timeout"`
	CalculatorTimeout time.Duration `yaml:"calculator_timeout"`
}

type Settings struct {
	Chat       *ChatSettings       `yaml:"chat"`
	API        *APISettings        `yaml:"api"`
	Embeddings *EmbeddingsSettings `yaml:"embeddings"`
	Index      *IndexSettings      `yaml:"index"`
	Agent      *AgentSettings      `yaml:"agent"`
	Tools      *ToolSettings       `yaml:"tools"`
}

// NewSettings returns the defaults: gpt-4 at
// temperature 0.7 / top_p 0.2 and a 10 exchange memory window.
func NewSettings() *Settings {
	return &Settings{
		Chat: &ChatSettings{
			ApiType:           ApiTypeOpenAI,
			Engine:            "gpt-4",
			Temperature:       0.7,
			TopP:              0.2,
			MaxResponseTokens: 4096,
			Timeout:           2 * time.Minute,
		},
		API: &APISettings{
			OpenAIBaseURL: "https://api.openai.com/v1",
			OllamaBaseURL: "http://localhost:11434",
			CohereBaseURL: "https://api.cohere.com/v2",
		},
		Embeddings: &EmbeddingsSettings{
			Type:            ApiTypeOpenAI,
			Engine:          "text-embedding-3-small",
			Dimensions:      1536,
			CacheType:       CacheTypeMemory,
			CacheSize:       1000,
			CacheMaxEntries: 10000,
			CacheMaxBytes:   1 << 30,
			Concurrency:     4,
		},
		Index: &IndexSettings{
			Extensions:       []string{".md", ".pdf", ".txt"},
			ChunkSize:        512,
			ChunkOverlap:     64,
			TopK:             4,
			SemanticWeight:   0.7,
			KeywordWeight:    0.3,
			RerankModel:      "rerank-v3.5",
			RerankCandidates: 20,
		},
		Agent: &AgentSettings{
			MemoryWindow:    10,
			MaxSteps:        8,
			MaxParseRetries: 3,
			PlannerMode:     PlannerModeReact,
		},
		Tools: &ToolSettings{
			SearchProvider:    "serpapi",
			BlastBaseURL:      "https://blast.ncbi.nlm.nih.gov/Blast.cgi",
			BlastProgram:      "blastn",
			BlastDatabase:     "nt",
			BlastPollInterval: 10 * time.Second,
			BlastTimeout:      10 * time.Minute,
			CalculatorTimeout: 2 * time.Second,
		},
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

func (s *Settings) Validate() error {
	if s.Chat == nil || s.API == nil || s.Embeddings == nil || s.Index == nil || s.Agent == nil || s.Tools == nil {
		return errors.New("incomplete settings")
	}
	switch s.Chat.ApiType {
	case ApiTypeOpenAI, ApiTypeOllama:
	default:
		return errors.Errorf("unknown chat api type %q", s.Chat.ApiType)
	}
	switch s.Embeddings.Type {
	case ApiTypeOpenAI, ApiTypeOllama, ApiTypeCohere:
	default:
		return errors.Errorf("unknown embeddings type %q", s.Embeddings.Type)
	}
	switch s.Embeddings.CacheType {
	case CacheTypeNone, CacheTypeMemory, CacheTypeDisk:
	default:
		return errors.Errorf("unknown embeddings cache type %q", s.Embeddings.CacheType)
	}
	switch s.Index.Reranker {
	case "", ApiTypeCohere:
	default:
		return errors.Errorf("unknown reranker %q", s.Index.Reranker)
	}
	switch s.Agent.PlannerMode {
	case PlannerModeReact, PlannerModeFunctions:
	default:
		return errors.Errorf("unknown planner mode %q", s.Agent.PlannerMode)
	}
	if s.Agent.MemoryWindow < 0 {
		return errors.New("memory window must not be negative")
	}
	if s.Agent.MaxSteps <= 0 {
		return errors.New("max steps must be positive")
	}
	if s.Index.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}
	if s.Index.ChunkOverlap < 0 || s.Index.ChunkOverlap >= s.Index.ChunkSize {
		return errors.New("chunk overlap must be in [0, chunk size)")
	}
	return nil
}

package index

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// Chunker splits text into overlapping windows of cl100k tokens.
type Chunker struct {
	codec   tokenizer.Codec
	size    int
	overlap int
}

func NewChunker(size int, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.Errorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "creating tokenizer")
	}
	return &Chunker{codec: codec, size: size, overlap: overlap}, nil
}

func (c *Chunker) CountTokens(s string) (int, error) {
	ids, _, err := c.codec.Encode(s)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Split returns the chunks of s in order. Whitespace-only chunks are dropped.
func (c *Chunker) Split(s string) ([]string, error) {
	ids, _, err := c.codec.Encode(s)
	if err != nil {
		return nil, errors.Wrap(err, "encoding text")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) <= c.size {
		t := strings.TrimSpace(s)
		if t == "" {
			return nil, nil
		}
		return []string{t}, nil
	}

	stride := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(ids); start += stride {
		end := start + c.size
		if end > len(ids) {
			end = len(ids)
		}
		decoded, err := c.codec.Decode(ids[start:end])
		if err != nil {
			return nil, errors.Wrap(err, "decoding chunk")
		}
		// a window may cut a multi-byte rune in half
		decoded = strings.TrimSpace(strings.ToValidUTF8(decoded, ""))
		if decoded != "" {
			chunks = append(chunks, decoded)
		}
		if end == len(ids) {
			break
		}
	}
	return chunks, nil
}

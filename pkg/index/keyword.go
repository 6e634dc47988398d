package index

import (
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/pkg/errors"
)

const KeywordIndexDir = "keyword.bleve"

// KeywordIndex is a BM25 index over chunk text.
type KeywordIndex struct {
	index bleve.Index
}

type KeywordHit struct {
	ID    string
	Score float64
}

func buildKeywordMapping() mapping.IndexMapping {
	chunkMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = en.AnalyzerName
	chunkMapping.AddFieldMappingsAt("text", textField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	chunkMapping.AddFieldMappingsAt("path", pathField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = chunkMapping
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	return indexMapping
}

// CreateKeywordIndex replaces any index at path with an empty one.
func CreateKeywordIndex(path string) (*KeywordIndex, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, errors.Wrapf(err, "removing old keyword index %s", path)
	}
	idx, err := bleve.NewUsing(path, buildKeywordMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create keyword index")
	}
	return &KeywordIndex{index: idx}, nil
}

func OpenKeywordIndex(path string) (*KeywordIndex, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open keyword index %s", path)
	}
	return &KeywordIndex{index: idx}, nil
}

func (k *KeywordIndex) Add(chunks []Chunk) error {
	batch := k.index.NewBatch()
	for _, c := range chunks {
		doc := map[string]interface{}{
			"text": c.Text,
			"path": c.Path,
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return errors.Wrapf(err, "index chunk %s", c.ID)
		}
	}
	return errors.Wrap(k.index.Batch(batch), "keyword batch")
}

// Search returns hits with scores scaled to [0, 1] by the best hit.
func (k *KeywordIndex) Search(q string, limit int) ([]KeywordHit, error) {
	if limit <= 0 {
		limit = 10
	}
	query := bleve.NewMatchQuery(q)
	query.SetField("text")
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)

	res, err := k.index.Search(req)
	if err != nil {
		return nil, errors.Wrap(err, "keyword search")
	}

	maxScore := 0.0
	for _, hit := range res.Hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	hits := make([]KeywordHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		score := hit.Score
		if maxScore > 0 {
			score /= maxScore
		}
		hits = append(hits, KeywordHit{ID: hit.ID, Score: score})
	}
	return hits, nil
}

func (k *KeywordIndex) Count() (uint64, error) {
	return k.index.DocCount()
}

func (k *KeywordIndex) Close() error {
	return k.index.Close()
}

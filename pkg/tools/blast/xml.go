package blast

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

// Hit is one database sequence aligned to the query, with its best HSP.
type Hit struct {
	ID        string  `json:"id"`
	Accession string  `json:"accession"`
	Def       string  `json:"def"`
	Length    int     `json:"length"`
	EValue    float64 `json:"evalue"`
	BitScore  float64 `json:"bit_score"`
	Identity  int     `json:"identity"`
	AlignLen  int     `json:"align_len"`
}

// Record holds the hits for one query sequence.
type Record struct {
	QueryID     string `json:"query_id"`
	QueryDef    string `json:"query_def"`
	QueryLength int    `json:"query_length"`
	Message     string `json:"message,omitempty"`
	Hits        []Hit  `json:"hits"`
}

type xmlOutput struct {
	XMLName    xml.Name       `xml:"BlastOutput"`
	Program    string         `xml:"BlastOutput_program"`
	QueryID    string         `xml:"BlastOutput_query-ID"`
	QueryDef   string         `xml:"BlastOutput_query-def"`
	QueryLen   int            `xml:"BlastOutput_query-len"`
	Iterations []xmlIteration `xml:"BlastOutput_iterations>Iteration"`
}

type xmlIteration struct {
	Num      int      `xml:"Iteration_iter-num"`
	QueryID  string   `xml:"Iteration_query-ID"`
	QueryDef string   `xml:"Iteration_query-def"`
	QueryLen int      `xml:"Iteration_query-len"`
	Hits     []xmlHit `xml:"Iteration_hits>Hit"`
	Message  string   `xml:"Iteration_message"`
}

type xmlHit struct {
	Num       int      `xml:"Hit_num"`
	ID        string   `xml:"Hit_id"`
	Def       string   `xml:"Hit_def"`
	Accession string   `xml:"Hit_accession"`
	Len       int      `xml:"Hit_len"`
	Hsps      []xmlHsp `xml:"Hit_hsps>Hsp"`
}

type xmlHsp struct {
	BitScore float64 `xml:"Hsp_bit-score"`
	EValue   float64 `xml:"Hsp_evalue"`
	Identity int     `xml:"Hsp_identity"`
	AlignLen int     `xml:"Hsp_align-len"`
}

// ParseXML decodes BLAST XML output into one record per iteration. Any
// decoding error fails the whole parse.
func ParseXML(r io.Reader) ([]Record, error) {
	var out xmlOutput
	if err := xml.NewDecoder(r).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decoding BLAST XML")
	}

	records := make([]Record, 0, len(out.Iterations))
	for _, it := range out.Iterations {
		rec := Record{
			QueryID:     it.QueryID,
			QueryDef:    it.QueryDef,
			QueryLength: it.QueryLen,
			Message:     it.Message,
			Hits:        make([]Hit, 0, len(it.Hits)),
		}
		// older outputs only carry the query on the root element
		if rec.QueryID == "" {
			rec.QueryID = out.QueryID
			rec.QueryDef = out.QueryDef
			rec.QueryLength = out.QueryLen
		}
		for _, h := range it.Hits {
			hit := Hit{
				ID:        h.ID,
				Accession: h.Accession,
				Def:       h.Def,
				Length:    h.Len,
			}
			if len(h.Hsps) > 0 {
				best := h.Hsps[0]
				for _, hsp := range h.Hsps[1:] {
					if hsp.EValue < best.EValue {
						best = hsp
					}
				}
				hit.EValue = best.EValue
				hit.BitScore = best.BitScore
				hit.Identity = best.Identity
				hit.AlignLen = best.AlignLen
			}
			rec.Hits = append(rec.Hits, hit)
		}
		records = append(records, rec)
	}
	return records, nil
}

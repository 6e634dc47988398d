package blast

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/rs/zerolog/log"
)

const (
	ToolName        = "NBlast"
	ToolDescription = "useful for when you need to find similar DNA sequences in the NCBI database. The tool can also be used to identify unknown sequences. The input to the tool is the DNA sequence only."
)

func NewTool(c *Client) tools.Tool {
	return tools.Tool{
		Name:        ToolName,
		Description: ToolDescription,
		Func: func(ctx context.Context, query string) (string, error) {
			log.Info().Str("tool", ToolName).Str("query", query).Msg("tool query")
			records, err := c.Search(ctx, query)
			if err != nil {
				return "", err
			}
			return RenderRecords(records), nil
		},
	}
}

// RenderRecords lists every record and all of its hits.
func RenderRecords(records []Record) string {
	if len(records) == 0 {
		return "BLAST returned no records."
	}
	var sb strings.Builder
	for i, r := range records {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Query %s (length %d): %d hits\n", r.QueryID, r.QueryLength, len(r.Hits))
		if len(r.Hits) == 0 && r.Message != "" {
			fmt.Fprintf(&sb, "  %s\n", r.Message)
		}
		for j, h := range r.Hits {
			fmt.Fprintf(&sb, "  %d. %s %s, e-value %g, identity %d/%d\n",
				j+1, h.ID, h.Def, h.EValue, h.Identity, h.AlignLen)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

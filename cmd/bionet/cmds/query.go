package cmds

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/bionet/pkg/embeddings"
	"github.com/go-go-golems/bionet/pkg/index"
	"github.com/go-go-golems/bionet/pkg/inference/engine/factory"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var QueryCmd = &cobra.Command{
	Use:   "query QUESTION...",
	Short: "Ask the index directly, without the agent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		showSources, _ := cmd.Flags().GetBool("sources")
		ctx := cmd.Context()
		w := cmd.OutOrStdout()

		s, err := loadSettings()
		if err != nil {
			return err
		}
		if !index.Exists(storageDir(path)) {
			return errors.New("please generate an index first")
		}
		provider, err := embeddings.NewProviderFromSettings(s)
		if err != nil {
			return err
		}
		eng, err := factory.NewEngineFromSettings(s)
		if err != nil {
			return err
		}
		loadOpts, err := index.LoadOptionsFromSettings(s)
		if err != nil {
			return err
		}
		idx, err := index.Load(ctx, storageDir(path), provider, loadOpts...)
		if err != nil {
			return err
		}
		defer func() {
			_ = idx.Close()
		}()

		resp, err := index.NewQueryEngine(idx, eng, s.Index.TopK).Query(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printMarkdown(w, resp.String())
		if showSources {
			for _, src := range resp.Sources {
				_, _ = fmt.Fprintf(w, "- %s#%d (score %.3f)\n", src.Path, src.Ordinal, src.Score)
			}
		}
		return nil
	},
}

func init() {
	QueryCmd.Flags().String("path", ".", "Working directory containing storage/")
	QueryCmd.Flags().Bool("sources", false, "List the chunks the answer was built from")
}

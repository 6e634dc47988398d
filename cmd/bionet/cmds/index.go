package cmds

import (
	"fmt"
	"time"

	"github.com/go-go-golems/bionet/pkg/embeddings"
	"github.com/go-go-golems/bionet/pkg/index"
	"github.com/go-go-golems/bionet/pkg/inference/engine/factory"
	"github.com/spf13/cobra"
)

var IndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from DIR/data into DIR/storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		ctx := cmd.Context()
		w := cmd.OutOrStdout()

		s, err := loadSettings()
		if err != nil {
			return err
		}
		provider, err := embeddings.NewProviderFromSettings(s)
		if err != nil {
			return err
		}

		b, err := index.NewBuilder(provider, s.Index, index.WithConcurrency(s.Embeddings.Concurrency))
		if err != nil {
			return err
		}
		stats, err := b.Build(ctx, dataDir(path), storageDir(path))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Indexed %d documents into %d chunks in %s.\n\n",
			stats.Documents, stats.Chunks, stats.Duration.Round(time.Millisecond))

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

		summary, err := index.Summarize(ctx, index.NewQueryEngine(idx, eng, s.Index.TopK))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, "Your key words are:")
		printMarkdown(w, summary.Keywords)
		_, _ = fmt.Fprintln(w, "\nYour example prompts are:")
		printMarkdown(w, summary.Questions)
		return nil
	},
}

func init() {
	IndexCmd.Flags().String("path", ".", "Working directory containing data/")
}

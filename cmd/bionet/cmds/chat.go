package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/bionet/pkg/agent"
	"github.com/go-go-golems/bionet/pkg/events"
	"github.com/go-go-golems/bionet/pkg/index"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent over the index in DIR/storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		prompts, _ := cmd.Flags().GetStringArray("prompt")
		scriptFile, _ := cmd.Flags().GetString("script")
		runChecks, _ := cmd.Flags().GetBool("checks")
		brief, _ := cmd.Flags().GetBool("brief")

		s, err := loadSettings()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		rt, err := agent.NewRuntime(ctx, agent.Options{
			Settings:   s,
			StorageDir: storageDir(path),
		})
		if errors.Is(err, index.ErrIndexNotFound) {
			return errors.New("please generate an index first")
		}
		if err != nil {
			return err
		}
		defer func() {
			_ = rt.Close()
		}()

		var checks []agent.Check
		for _, p := range prompts {
			checks = append(checks, agent.Check{Prompt: p})
		}
		if scriptFile != "" {
			f, err := os.Open(scriptFile)
			if err != nil {
				return errors.Wrap(err, "open script")
			}
			loaded, err := agent.LoadScript(f)
			_ = f.Close()
			if err != nil {
				return err
			}
			checks = append(checks, loaded...)
		}
		if runChecks {
			checks = append(checks, agent.DefaultChecks...)
		}

		c := &chat{
			session: rt.NewSession(),
			in:      cmd.InOrStdin(),
			out:     cmd.OutOrStdout(),
		}

		if !viper.GetBool("verbose") {
			return c.run(ctx, brief, checks)
		}

		router, err := events.NewEventRouter()
		if err != nil {
			return errors.Wrap(err, "failed to create event router")
		}
		defer func() {
			_ = router.Close()
		}()
		router.AddHandler("printer", events.TopicAgent, events.StepPrinterFunc(cmd.ErrOrStderr()))

		eg := errgroup.Group{}
		eg.Go(func() error {
			defer cancel()
			return router.Run(ctx)
		})
		eg.Go(func() error {
			defer cancel()
			<-router.Running()
			return c.run(events.WithEventSinks(ctx, router.Sink(events.TopicAgent)), brief, checks)
		})
		return eg.Wait()
	},
}

// pasted sequences can be far longer than bufio's default token size
const maxLineSize = 8 << 20

type chat struct {
	session *agent.Session
	in      io.Reader
	out     io.Writer
}

// run sends the briefing, then the scripted checks. Without checks it reads
// utterances from in until exit, quit or EOF.
func (c *chat) run(ctx context.Context, brief bool, checks []agent.Check) error {
	if brief {
		if err := c.ask(ctx, agent.BriefingPrompt); err != nil {
			return err
		}
	}

	if len(checks) > 0 {
		for i, check := range checks {
			if check.Title != "" {
				_, _ = fmt.Fprintf(c.out, "\n%d. %s\n", i+1, check.Title)
			}
			if err := c.ask(ctx, check.Prompt); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for {
		_, _ = fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(c.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := c.ask(ctx, line); err != nil {
			return err
		}
	}
}

// ask prints the answer. A failed turn is reported and the conversation
// goes on; only cancellation stops it.
func (c *chat) ask(ctx context.Context, utterance string) error {
	resp, err := c.session.Ask(ctx, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(err).Str("session", c.session.ID()).Msg("turn failed")
		_, _ = fmt.Fprintf(c.out, "Error: %v\n", err)
		return nil
	}
	printMarkdown(c.out, resp.Text)
	return nil
}

func init() {
	ChatCmd.Flags().String("path", ".", "Working directory containing storage/")
	ChatCmd.Flags().StringArray("prompt", nil, "Send this prompt instead of starting the REPL (repeatable)")
	ChatCmd.Flags().String("script", "", "YAML file with a list of prompts to send")
	ChatCmd.Flags().Bool("checks", false, "Run the built-in check prompts")
	ChatCmd.Flags().Bool("brief", false, "Brief the agent on its persona first")
}

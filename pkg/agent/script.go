package agent

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BriefingPrompt introduces the persona at the start of a conversation.
const BriefingPrompt = "You are BIOGEN, a safety conscious AI scientist that helps humans to synthesize enzymes"

// Check is one scripted prompt, printed under its title.
type Check struct {
	Title  string `yaml:"title"`
	Prompt string `yaml:"prompt"`
}

// DefaultChecks exercises memory, the index tool, search with math, and
// forced tool use.
var DefaultChecks = []Check{
	{Title: "Confirm bot memory", Prompt: "Who are you?"},
	{Title: "Check correct tool invocation", Prompt: "What's the best way to synthesize DNA?"},
	{
		Title:  "Check math and search tools",
		Prompt: "Look up the number of genes in the human genome. Pick one estimate of the number of genes. What is the number of genes raised to the 0.43 power?",
	},
	{Title: "Forcing invocation by direct instruction", Prompt: "Using custom tool BIONET please explain DNA synthesis?"},
	{Title: "Enzyme Design Help", Prompt: "Please design an enzyme for tooth whitening."},
	{Prompt: "Please suggest specific synthetic biology steps for synthesizing that enzyme."},
}

// LoadScript reads a YAML list of checks. Plain strings are accepted as
// untitled prompts.
func LoadScript(r io.Reader) ([]Check, error) {
	var raw []yaml.Node
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decoding script")
	}

	checks := make([]Check, 0, len(raw))
	for i, n := range raw {
		var c Check
		switch n.Kind {
		case yaml.ScalarNode:
			c.Prompt = n.Value
		case yaml.MappingNode:
			if err := n.Decode(&c); err != nil {
				return nil, errors.Wrapf(err, "script entry %d", i+1)
			}
		default:
			return nil, errors.Errorf("script entry %d must be a string or a mapping", i+1)
		}
		c.Prompt = strings.TrimSpace(c.Prompt)
		if c.Prompt == "" {
			return nil, errors.Errorf("script entry %d has no prompt", i+1)
		}
		checks = append(checks, c)
	}
	return checks, nil
}

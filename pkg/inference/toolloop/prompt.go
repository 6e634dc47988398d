package toolloop

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/pkg/errors"
)

const DefaultPersona = `Assistant is a large language model trained to help with research in bioengineering.

Assistant is designed to be able to assist with a wide range of tasks, from answering simple questions to providing in-depth explanations and discussions on a wide range of topics. Assistant is able to generate human-like text based on the input it receives, allowing it to engage in natural-sounding conversations and provide responses that are coherent and relevant to the topic at hand.`

const systemPromptTemplate = `{{ .Persona | trim }}

TOOLS
------
Assistant can ask the user to use tools to look up information that may be helpful in answering the user's original question. The tools the human can use are:

{{ range .Tools }}> {{ .Name }}: {{ .Description | trim }}
{{ end }}
RESPONSE FORMAT INSTRUCTIONS
----------------------------

When responding, please output a response in one of two formats:

**Option 1:**
Use this if you want the human to use a tool.
Markdown code snippet formatted in the following schema:

` + "```json" + `
{
    "action": string, \\ The action to take. Must be one of {{ .ToolNames | join ", " }}
    "action_input": string \\ The input to the action
}
` + "```" + `

**Option #2:**
Use this if you want to respond directly to the human. Markdown code snippet formatted in the following schema:

` + "```json" + `
{
    "action": "{{ .FinalAnswer }}",
    "action_input": string \\ You should put what you want to return to use here
}
` + "```" + `
`

const observationTemplate = `TOOL RESPONSE:
---------------------
{{ .Observation | trim }}

USER'S INPUT
--------------------

Okay, so what is the response to my last comment? If using information obtained from the tools you must mention it explicitly without mentioning the tool names - I have forgotten all TOOL RESPONSES! Remember to respond with a markdown code snippet of a json blob with a single action, and NOTHING else.`

const correctionTemplate = `Your last reply could not be parsed: {{ .Error }}

Respond with a markdown code snippet of a json blob with a single action, and NOTHING else. Use "{{ .FinalAnswer }}" as the action to answer directly.`

var (
	systemTmpl      = template.Must(template.New("system").Funcs(sprig.TxtFuncMap()).Parse(systemPromptTemplate))
	observationTmpl = template.Must(template.New("observation").Funcs(sprig.TxtFuncMap()).Parse(observationTemplate))
	correctionTmpl  = template.Must(template.New("correction").Funcs(sprig.TxtFuncMap()).Parse(correctionTemplate))
)

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "render %s prompt", t.Name())
	}
	return buf.String(), nil
}

// RenderSystemPrompt lists the tools and the action blob format.
func RenderSystemPrompt(persona string, descs []tools.Description) (string, error) {
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		names = append(names, d.Name)
	}
	return render(systemTmpl, map[string]interface{}{
		"Persona":     persona,
		"Tools":       descs,
		"ToolNames":   names,
		"FinalAnswer": FinalAnswerAction,
	})
}

func RenderObservation(observation string) (string, error) {
	return render(observationTmpl, map[string]interface{}{
		"Observation": observation,
	})
}

// RenderCorrection is the corrective note sent after a malformed reply.
func RenderCorrection(parseErr error) (string, error) {
	return render(correctionTmpl, map[string]interface{}{
		"Error":       parseErr.Error(),
		"FinalAnswer": FinalAnswerAction,
	})
}

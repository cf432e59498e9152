// Package harness builds the prompts sent to model providers and the
// HTML execution harness that wraps a submission for rendering. The
// harness embeds code in a document; it never executes it server-side.
package harness

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Icannotcodelol/onnyx/internal/prompts"
	"github.com/Icannotcodelol/onnyx/internal/sanitize"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

// SystemPrompt is the fixed system instruction sent with every
// provider call.
func SystemPrompt() string {
	return prompts.MustGet("dispatch.json", "system")
}

// BuildModelPrompt renders a task into the user prompt for a model.
func BuildModelPrompt(task types.TaskSpec) string {
	lines := []string{
		fmt.Sprintf("Task: %s", task.Title),
		"",
		task.Summary,
		"",
		"Instructions:",
		task.Instructions,
		"",
		"Acceptance criteria:",
	}
	for i, item := range task.AcceptanceCriteria {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	lines = append(lines,
		"",
		"Starter code:",
		"```",
		strings.TrimSpace(task.Starter.Code),
		"```",
	)
	return strings.Join(lines, "\n")
}

// FormatSubmissionPrompt is the full prompt persisted with each
// submission for later inspection.
func FormatSubmissionPrompt(task types.TaskSpec) string {
	return fmt.Sprintf("System: %s\n\n%s", SystemPrompt(), BuildModelPrompt(task))
}

// Build is a constructed execution harness for one submission.
type Build struct {
	Runtime types.Runtime
	HTML    string
}

// export keywords are stripped so harness script can reach the
// submission's functions directly.
var exportKeyword = regexp.MustCompile(`export\s+(function|const|let|var|default)`)

// BuildHarness sanitizes the code and wraps it in the runtime's
// harness document. Runtimes other than js-browser get a placeholder
// page.
func BuildHarness(runtime types.Runtime, code string) (*Build, error) {
	sanitized, err := sanitize.Clean(code, sanitize.DefaultPolicy)
	if err != nil {
		return nil, err
	}

	if runtime != types.RuntimeJSBrowser {
		html := fmt.Sprintf("<!DOCTYPE html><html><body><pre>Runtime %s is not yet implemented.</pre></body></html>", runtime)
		return &Build{Runtime: runtime, HTML: html}, nil
	}

	stripped := exportKeyword.ReplaceAllString(sanitized, "$1")
	html := fmt.Sprintf(browserHarness, stripped)
	return &Build{Runtime: runtime, HTML: html}, nil
}

const browserHarness = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Onnyx Runtime</title>
    <style>
      html, body { margin: 0; padding: 0; background: #020512; color: white; font-family: sans-serif; }
      canvas { width: 100vw; height: 100vh; display: block; }
    </style>
  </head>
  <body>
    <canvas id="onnyx-canvas" width="1280" height="720"></canvas>
    <script>
      %s

      const canvas = document.getElementById('onnyx-canvas');
      const audio = new Float32Array(128);

      try {
        if (typeof render === 'function') {
          render(canvas, audio);
        } else if (typeof harness === 'function') {
          harness(audio);
        }
      } catch (error) {
        document.body.innerHTML = '<pre style="color:red;padding:20px;">Error: ' + error.message + '</pre>';
      }
    </script>
  </body>
</html>`

// Package prompt turns an editor request into the text sent to the language model.
//
// Every prompt has the same shape: a fixed instruction that sets the model's
// role, a blank line, then a task template with the user's code, language and
// previous output substituted in. Task types form a closed set; anything else
// is rejected before a model is ever called.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/codeagentix/internal/apperror"
)

// TaskType selects the instruction and template used for a request.
type TaskType string

const (
	TaskExplain    TaskType = "explain"
	TaskDebug      TaskType = "debug"
	TaskOptimize   TaskType = "optimize"
	TaskDocument   TaskType = "docs"
	TaskComplexity TaskType = "complexity"
	TaskGenerate   TaskType = "generate"
	TaskRefactor   TaskType = "refactor"
	TaskSimulate   TaskType = "run-simulate"
)

var taskAliases = map[string]TaskType{
	"explain":            TaskExplain,
	"debug":              TaskDebug,
	"optimize":           TaskOptimize,
	"docs":               TaskDocument,
	"document":           TaskDocument,
	"complexity":         TaskComplexity,
	"complexity-analyze": TaskComplexity,
	"generate":           TaskGenerate,
	"refactor":           TaskRefactor,
	"run-simulate":       TaskSimulate,
	"simulate":           TaskSimulate,
}

// ParseTaskType maps a request value onto a TaskType. Matching ignores case.
func ParseTaskType(s string) (TaskType, error) {
	t, ok := taskAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", apperror.ValidationFailed("type", fmt.Sprintf("unknown task type %q", s))
	}
	return t, nil
}

type review struct {
	instruction string
	description string
}

var reviews = map[TaskType]review{
	TaskExplain:    {explainInstruction, "Explain how this code works."},
	TaskDebug:      {debugInstruction, "Find bugs and suggest fixes for this code."},
	TaskOptimize:   {optimizeInstruction, "Optimize this code for performance."},
	TaskDocument:   {docsInstruction, "Generate comprehensive documentation for this code."},
	TaskComplexity: {complexityInstruction, "Calculate time and space complexity."},
}

// IsReview reports whether t belongs to the draft-then-refine family.
func (t TaskType) IsReview() bool {
	_, ok := reviews[t]
	return ok
}

// Input carries everything a template may reference.
type Input struct {
	Language    string
	Code        string
	Output      string // previous output shown in the editor
	Description string // problem description for generate/refactor
	Stdin       string // user input for run-simulate
	Now         time.Time
}

// Build renders the full prompt for task.
func Build(task TaskType, in Input) (string, error) {
	if r, ok := reviews[task]; ok {
		return join(r.instruction, fill(reviewTemplate, map[string]string{
			"language":         in.Language,
			"code":             in.Code,
			"output":           in.Output,
			"task_description": r.description,
		})), nil
	}

	switch task {
	case TaskGenerate:
		return join(generateInstruction, fill(generateTemplate, map[string]string{
			"language":            in.Language,
			"problem_description": in.Description,
		})), nil

	case TaskRefactor:
		tmpl := refactorTemplate
		if strings.TrimSpace(in.Description) != "" {
			tmpl = refactorUserTemplate
		}
		return join(refactorInstruction, fill(tmpl, map[string]string{
			"language":            in.Language,
			"code":                in.Code,
			"output":              in.Output,
			"problem_description": in.Description,
		})), nil

	case TaskSimulate:
		return buildSimulation(in), nil
	}

	return "", apperror.ValidationFailed("type", fmt.Sprintf("unknown task type %q", task))
}

func buildSimulation(in Input) string {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	b.WriteString(compilerInstruction)
	b.WriteString("\n")
	b.WriteString(runtimeInstruction)
	b.WriteString("\n\n")
	b.WriteString(fill(simulateTemplate, map[string]string{
		"language": in.Language,
		"code":     in.Code,
		"time":     TimeReference(now),
	}))
	if strings.TrimSpace(in.Stdin) != "" {
		b.WriteString(fill(simulateInputs, map[string]string{"stdin": in.Stdin}))
	} else {
		b.WriteString(simulateNoInputs)
	}
	b.WriteString(simulateRules)
	return b.String()
}

// Refinement asks the refiner model to tighten a draft answer about code.
func Refinement(draft, code string) string {
	return fill(refinementTemplate, map[string]string{
		"instruction": refineInstruction,
		"draft":       draft,
		"code":        code,
	})
}

// TimeReference renders t like "03:04:05 PM on January 02, 2006 UTC time zone".
func TimeReference(t time.Time) string {
	return t.UTC().Format("03:04:05 PM on January 02, 2006") + " UTC time zone"
}

// fill substitutes {key} placeholders in one left-to-right pass, so braces in
// substituted user text are never expanded again.
func fill(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func join(instruction, body string) string {
	return instruction + "\n\n" + body
}

var fencedCode = regexp.MustCompile("(?s)```(?:\\w*\\n)?(.*?)```")

// ExtractCode returns the trimmed body of the first fenced code block in
// answer, or the trimmed answer when it has no fence.
func ExtractCode(answer string) string {
	if m := fencedCode.FindStringSubmatch(answer); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(answer)
}

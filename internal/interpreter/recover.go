package interpreter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/prompts"
)

// parseFragmentJSON parses a fragment from model output, with
// lightweight recovery for markdown code fences and surrounding text.
func parseFragmentJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty interpreter output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("normalize interpreter output: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, fmt.Errorf("no parseable JSON in interpreter output")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(trimmed, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// fragmentSchema is compiled once from the canonical schema document.
var fragmentSchema = mustCompileFragmentSchema()

func mustCompileFragmentSchema() *jsonschema.Schema {
	wrapper := prompts.FragmentSchema["json_schema"].(map[string]any)
	raw, err := json.Marshal(wrapper["schema"])
	if err != nil {
		panic(fmt.Sprintf("marshal fragment schema: %v", err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fragment.json", bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("load fragment schema: %v", err))
	}
	schema, err := compiler.Compile("fragment.json")
	if err != nil {
		panic(fmt.Sprintf("compile fragment schema: %v", err))
	}
	return schema
}

// validateFragment checks parsed JSON against the fragment schema and
// decodes it.
func validateFragment(raw json.RawMessage) (Fragment, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Fragment{}, fmt.Errorf("decode fragment for validation: %w", err)
	}
	if err := fragmentSchema.Validate(doc); err != nil {
		return Fragment{}, fmt.Errorf("fragment does not match schema: %w", err)
	}

	var frag Fragment
	if err := json.Unmarshal(raw, &frag); err != nil {
		return Fragment{}, fmt.Errorf("decode fragment: %w", err)
	}
	return frag, nil
}

// repairPrompt asks the model to fix output that failed parsing or
// validation.
func repairPrompt(lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > 12000 {
		lastOutput = lastOutput[:12000] + "\n...[truncated]"
	}
	schemaText, _ := json.Marshal(prompts.FragmentSchema)

	return fmt.Sprintf(`Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema.

Schema:
%s

Your previous output:
%s

Validation issue:
%v`, schemaText, lastOutput, issue)
}

package prompts

// Prompt keys.
const (
	KeyAnalyzeLayout = "interpreter.analyze_pdf_layout"
	KeyGenerateTypst = "interpreter.generate_typst_code"
	KeyOptimizeTypst = "interpreter.optimize_typst_output"
)

// analyzeLayoutPrompt asks for a structural reading of one page.
const analyzeLayoutPrompt = `You are a document layout analyst. You will be given the extracted
content of one PDF page: positioned text runs with font information,
detected tables, and detected images, all in PDF points with the origin
at the top-left corner.

Describe the structural layout of the page:
- column count and column boundaries
- headings and their hierarchy (use font size and weight)
- body paragraphs, lists, footnotes, citations, and equations
- how tables and images sit in the reading order

Be precise about reading order. Report positions in points. Do not
invent content that is not in the input.

Page {{.Page}} of {{.PageCount}}, {{.PageW}}x{{.PageH}}pt.`

// generateTypstPrompt asks for a Typst fragment for one page.
const generateTypstPrompt = `You are a Typst markup generator. You will be given one PDF page's
extracted content as JSON: positioned text runs with fonts, detected
tables, detected images, and the page dimensions in points. A rendered
snapshot of the page may be attached.

Produce Typst markup that reproduces the page's structure:
- headings as "=" markers matching the visual hierarchy
- paragraphs in reading order, merged across line breaks
- lists with "-" or "+" markers and two-space nesting
- tables as #table with one "auto" column per source column
- images as #figure(image("assets/<name>", width: 80%), caption: [])
- multi-column pages wrapped in #columns(n, gutter: 1em)[...]
- escape Typst specials (\ # $ * _ ` + "`" + ` [ ] < > @) in text position

Respond with ONLY a JSON object of the form
{"page": <page number>, "markup": "<typst markup>"}.
No markdown fences, no commentary.`

// optimizeTypstPrompt asks for a cleanup pass over assembled markup.
const optimizeTypstPrompt = `You are a Typst reviewer. You will be given a complete Typst document
produced by an automatic PDF converter. Improve it without changing its
content:

- merge paragraphs that were split mid-sentence across pages
- remove stray page artifacts (running headers, page numbers)
- normalize heading levels so they descend without gaps
- keep all #figure, #table, and math blocks intact

Respond with ONLY the improved Typst document, no commentary.`

// Defaults returns the embedded prompt set.
func Defaults() []EmbeddedPrompt {
	return []EmbeddedPrompt{
		{
			Key:         KeyAnalyzeLayout,
			Text:        analyzeLayoutPrompt,
			Description: "Structural layout analysis of one extracted page",
		},
		{
			Key:         KeyGenerateTypst,
			Text:        generateTypstPrompt,
			Description: "Typst fragment generation for one extracted page",
		},
		{
			Key:         KeyOptimizeTypst,
			Text:        optimizeTypstPrompt,
			Description: "Cleanup pass over an assembled Typst document",
		},
	}
}

// FragmentSchema is the JSON schema the interpreter validates page
// fragments against.
var FragmentSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "typst_fragment",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"page": map[string]any{
					"type":        "integer",
					"description": "1-indexed page number the markup covers",
				},
				"markup": map[string]any{
					"type":        "string",
					"description": "Typst markup for the page",
				},
			},
			"required":             []string{"page", "markup"},
			"additionalProperties": false,
		},
	},
}

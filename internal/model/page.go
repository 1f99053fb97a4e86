package model

// PageRecord is the per-page state that flows through the pipeline. Each
// stage fills in its own fields; earlier fields are never mutated by
// later stages.
type PageRecord struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Extraction output.
	TextSpans  []RawTextSpan   `json:"text_spans,omitempty"`
	StyleSpans []RawStyleSpan  `json:"style_spans,omitempty"`
	Tables     []*RawTable     `json:"tables,omitempty"`
	Images     []RawImageAsset `json:"images,omitempty"`

	// Reconciliation output.
	Runs    []UnifiedRun `json:"runs,omitempty"`
	Columns int          `json:"columns,omitempty"`

	// Failed is set when extraction for this page crashed or timed out;
	// FailReason carries the diagnostic. A failed page degrades to a
	// placeholder, it never aborts the document on its own.
	Failed     bool   `json:"failed,omitempty"`
	FailReason string `json:"fail_reason,omitempty"`
}

// RawCharCount returns the number of characters across the page's raw
// text spans, used by the content-coverage report.
func (p *PageRecord) RawCharCount() int {
	n := 0
	for _, s := range p.TextSpans {
		n += len([]rune(NormalizedText(s.Text)))
	}
	return n
}

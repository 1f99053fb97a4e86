package render

import "strings"

// typstSpecials are the characters with markup meaning in Typst text
// position. Backslash is escaped first so the replacements that follow
// never double-escape their own output.
var typstSpecials = []string{
	"\\", "#", "$", "*", "_", "`", "[", "]", "<", ">", "@",
}

var escaper = buildEscaper()

func buildEscaper() *strings.Replacer {
	pairs := make([]string, 0, len(typstSpecials)*2)
	for _, s := range typstSpecials {
		pairs = append(pairs, s, "\\"+s)
	}
	return strings.NewReplacer(pairs...)
}

// Escape makes text safe for Typst text position.
func Escape(text string) string {
	return escaper.Replace(text)
}

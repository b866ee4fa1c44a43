package syntax

import "github.com/alecthomas/chroma"

// Rule pairs a pattern with the category its matches are shown as.
type Rule struct {
	Pattern  string
	Category Category
}

const ident = `[A-Za-z_][\w-]*`

var keywords = []string{
	"using", "template", "menu", "section", "submenu", "item",
	"bind", "bind-property", "no-sync-create", "sync-create", "inverted",
	"bidirectional", "swapped", "after", "default", "responses",
	"accessibility", "layout", "styles", "mime-types", "patterns",
	"suffixes", "marks", "mark", "strings", "items", "condition",
	"setters", "extend-on-delete", "widgets", "destructive", "disabled",
	"typeof", "as",
}

var constants = []string{"true", "false", "null", "yes", "no"}

// Rules is the ordered classification table. At each position the first
// rule whose pattern matches wins.
var Rules = []Rule{
	{`//[^\n]*`, CategoryComment},
	{`/\*[\s\S]*?\*/`, CategoryComment},
	{`"(?:\\.|[^"\\\n])*"`, CategoryString},
	{`'(?:\\.|[^'\\\n])*'`, CategoryString},
	{`=>`, CategorySignalArrow},
	{`(?<==>\s*)\$?` + ident, CategorySignalHandler},
	{ident + `(?=\s*:(?!:))`, CategoryProperty},
	{`[A-Z]\w*(?=\.` + ident + `)`, CategoryNamespace},
	{chroma.Words(`(?<![\w-])`, `(?![\w-])`, words(keywords)...), CategoryKeyword},
	{chroma.Words(`(?<![\w-])`, `(?![\w-])`, words(constants)...), CategoryConstant},
	{`(?<![\w-])(?:C_|_)(?=\()`, CategoryKeyword},
	{`\$` + ident, CategoryType},
	{`[A-Z]\w*`, CategoryType},
	{`-?\d+(?:\.\d+)?`, CategoryNumber},
	{`[{}\[\]();:.,|<>]`, CategoryPunctuation},
	{ident, CategoryText},
	{`\s+`, CategoryText},
	{`.`, CategoryText},
}

func chromaRules(table []Rule) chroma.Rules {
	root := make([]chroma.Rule, 0, len(table))
	for _, r := range table {
		root = append(root, chroma.Rule{Pattern: r.Pattern, Type: r.Category.TokenType()})
	}
	return chroma.Rules{"root": root}
}

// words copies list, since chroma.Words sorts and quotes in place.
func words(list []string) []string {
	return append([]string(nil), list...)
}

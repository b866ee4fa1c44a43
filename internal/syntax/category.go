package syntax

import "github.com/alecthomas/chroma"

// Category is the display class of a classified span.
type Category int

const (
	CategoryText Category = iota
	CategoryComment
	CategoryString
	CategoryKeyword
	CategoryConstant
	CategoryNamespace
	CategoryType
	CategorySignalHandler
	CategoryProperty
	CategorySignalArrow
	CategoryNumber
	CategoryPunctuation
)

var categoryNames = map[Category]string{
	CategoryText:          "text",
	CategoryComment:       "comment",
	CategoryString:        "string",
	CategoryKeyword:       "keyword",
	CategoryConstant:      "constant",
	CategoryNamespace:     "namespace",
	CategoryType:          "type",
	CategorySignalHandler: "signal-handler",
	CategoryProperty:      "property",
	CategorySignalArrow:   "signal-arrow",
	CategoryNumber:        "number",
	CategoryPunctuation:   "punctuation",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// HighlightGroup returns the Neovim highlight group used for c.
func (c Category) HighlightGroup() string {
	switch c {
	case CategoryComment:
		return "Comment"
	case CategoryString:
		return "String"
	case CategoryKeyword:
		return "Keyword"
	case CategoryConstant:
		return "Constant"
	case CategoryNamespace:
		return "Include"
	case CategoryType:
		return "Type"
	case CategorySignalHandler:
		return "Function"
	case CategoryProperty:
		return "Identifier"
	case CategorySignalArrow:
		return "Operator"
	case CategoryNumber:
		return "Number"
	case CategoryPunctuation:
		return "Delimiter"
	default:
		return ""
	}
}

// TokenType is the chroma token type emitted for c.
func (c Category) TokenType() chroma.TokenType {
	switch c {
	case CategoryComment:
		return chroma.Comment
	case CategoryString:
		return chroma.LiteralString
	case CategoryKeyword:
		return chroma.Keyword
	case CategoryConstant:
		return chroma.KeywordConstant
	case CategoryNamespace:
		return chroma.NameNamespace
	case CategoryType:
		return chroma.NameClass
	case CategorySignalHandler:
		return chroma.NameFunction
	case CategoryProperty:
		return chroma.NameAttribute
	case CategorySignalArrow:
		return chroma.Operator
	case CategoryNumber:
		return chroma.LiteralNumber
	case CategoryPunctuation:
		return chroma.Punctuation
	default:
		return chroma.Text
	}
}

// categoryOf maps a chroma token type back to a Category.
func categoryOf(t chroma.TokenType) Category {
	switch t {
	case chroma.KeywordConstant:
		return CategoryConstant
	case chroma.NameNamespace:
		return CategoryNamespace
	case chroma.NameClass:
		return CategoryType
	case chroma.NameFunction:
		return CategorySignalHandler
	case chroma.NameAttribute:
		return CategoryProperty
	case chroma.Operator:
		return CategorySignalArrow
	case chroma.Punctuation:
		return CategoryPunctuation
	}
	switch {
	case t.InCategory(chroma.Comment):
		return CategoryComment
	case t.InSubCategory(chroma.LiteralString):
		return CategoryString
	case t.InSubCategory(chroma.LiteralNumber):
		return CategoryNumber
	case t.InCategory(chroma.Keyword):
		return CategoryKeyword
	default:
		return CategoryText
	}
}

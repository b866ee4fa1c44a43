// Package syntax classifies Blueprint source into highlight categories.
//
// The classification table in Rules is compiled into a chroma lexer and
// registered under the "blueprint" alias, so anything that resolves lexers
// through chroma (formatters, goldmark-highlighting) uses the same table.
package syntax

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/lexers"
	"github.com/patrickmn/go-cache"
)

// Lexer is the registered Blueprint lexer.
var Lexer = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "Blueprint",
		Aliases:   []string{"blueprint", "blp"},
		Filenames: []string{"*.blp"},
		MimeTypes: []string{"text/x-blueprint"},
	},
	chromaRules(Rules),
))

// Span is a classified run of text on a single line. Line is 0-based and
// Start/Length are byte offsets, matching Neovim's highlight API.
type Span struct {
	Line     int
	Start    int
	Length   int
	Category Category
}

// Tokenise runs the Blueprint lexer over text.
func Tokenise(text string) (chroma.Iterator, error) {
	return Lexer.Tokenise(nil, text)
}

// classifyOptions keeps line endings as they are, so token runes line up
// one to one with the runes of the input.
var classifyOptions = &chroma.TokeniseOptions{State: "root"}

// Classify splits text into spans. Plain text and whitespace produce no
// span; tokens that cross newlines are split per line.
//
// The lexer works on runes and hands back invalid UTF-8 as U+FFFD, so span
// offsets are measured on text itself, one rune of text per rune of token.
func Classify(text string) ([]Span, error) {
	it, err := Lexer.Tokenise(classifyOptions, text)
	if err != nil {
		return nil, fmt.Errorf("tokenise: %w", err)
	}

	var (
		spans []Span
		line  int
		col   int
		pos   int
	)
	for tok := it(); tok != chroma.EOF; tok = it() {
		end := advanceRunes(text, pos, utf8.RuneCountInString(tok.Value))
		cat := categoryOf(tok.Type)
		segments := strings.Split(text[pos:end], "\n")
		for i, seg := range segments {
			if i > 0 {
				line++
				col = 0
			}
			if cat != CategoryText && seg != "" {
				spans = append(spans, Span{Line: line, Start: col, Length: len(seg), Category: cat})
			}
			col += len(seg)
		}
		pos = end
	}
	return spans, nil
}

// advanceRunes returns the byte offset n runes past pos, where an invalid
// byte counts as one rune.
func advanceRunes(text string, pos, n int) int {
	for ; n > 0 && pos < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}

// Classifier memoises Classify by document content. Hosts re-highlight on
// every buffer event, and most of those events leave the text unchanged.
type Classifier struct {
	cache *cache.Cache
}

// NewClassifier returns a Classifier whose entries expire after ttl.
func NewClassifier(ttl time.Duration) *Classifier {
	return &Classifier{cache: cache.New(ttl, 2*ttl)}
}

// Classify returns the spans of text, from cache when possible.
func (c *Classifier) Classify(text string) ([]Span, error) {
	key := contentKey(text)
	if v, ok := c.cache.Get(key); ok {
		return v.([]Span), nil
	}
	spans, err := Classify(text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, spans, cache.DefaultExpiration)
	return spans, nil
}

// Len reports the number of cached documents.
func (c *Classifier) Len() int {
	return c.cache.ItemCount()
}

func contentKey(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("%d:%x", len(text), h.Sum64())
}

package world

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"cesm/internal/logging"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a tree-sitter grammar.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "javascript"
	LangRust       Language = "rust"
)

// ErrUnsupportedLanguage is returned for files without a registered grammar.
var ErrUnsupportedLanguage = errors.New("unsupported language")

var extLanguages = map[string]Language{
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".rs":  LangRust,
}

// LanguageFor maps a file path to its grammar by extension.
func LanguageFor(path string) (Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extLanguages[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, ext)
	}
	return lang, nil
}

func grammar(lang Language) *sitter.Language {
	switch lang {
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	}
	return nil
}

// ParserFactory hands out tree-sitter parsers per language.
// A sitter.Parser is not safe for concurrent use, so parsers are pooled.
type ParserFactory struct {
	mu    sync.Mutex
	pools map[Language]*sync.Pool
}

// NewParserFactory creates an empty factory; pools are built lazily.
func NewParserFactory() *ParserFactory {
	return &ParserFactory{pools: make(map[Language]*sync.Pool)}
}

func (f *ParserFactory) pool(lang Language) (*sync.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.pools[lang]; ok {
		return p, nil
	}
	g := grammar(lang)
	if g == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	p := &sync.Pool{New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(g)
		return parser
	}}
	f.pools[lang] = p
	logging.WorldDebug("ParserFactory: created parser pool for %s", lang)
	return p, nil
}

// Parse parses content with the grammar for lang. The caller closes the tree.
func (f *ParserFactory) Parse(ctx context.Context, lang Language, content []byte) (*sitter.Tree, error) {
	p, err := f.pool(lang)
	if err != nil {
		return nil, err
	}
	parser := p.Get().(*sitter.Parser)
	defer p.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return tree, nil
}

// ParseFile picks the grammar from the path and parses content.
func (f *ParserFactory) ParseFile(ctx context.Context, path string, content []byte) (*sitter.Tree, Language, error) {
	lang, err := LanguageFor(path)
	if err != nil {
		return nil, "", err
	}
	tree, err := f.Parse(ctx, lang, content)
	if err != nil {
		return nil, lang, fmt.Errorf("%s: %w", path, err)
	}
	return tree, lang, nil
}

var defaultFactory = NewParserFactory()

// ParseSource parses with the shared process-wide factory.
func ParseSource(ctx context.Context, path string, content []byte) (*sitter.Tree, Language, error) {
	return defaultFactory.ParseFile(ctx, path, content)
}

// ParseLanguage parses content in lang with the shared factory.
func ParseLanguage(ctx context.Context, lang Language, content []byte) (*sitter.Tree, error) {
	return defaultFactory.Parse(ctx, lang, content)
}

// NodeText returns the source text spanned by n.
func NodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

// FirstError returns the first ERROR or MISSING node under n in document
// order, or nil when the tree is clean.
func FirstError(n *sitter.Node) *sitter.Node {
	if n == nil || !n.HasError() {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := FirstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return n
}

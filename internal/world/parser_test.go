package world

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestLanguageFor(t *testing.T) {
	tests := map[string]Language{
		"a.ts":     LangTypeScript,
		"a.mts":    LangTypeScript,
		"A.TSX":    LangTSX,
		"x/y.js":   LangJavaScript,
		"x/y.cjs":  LangJavaScript,
		"types.rs": LangRust,
	}
	for path, want := range tests {
		got, err := LanguageFor(path)
		if err != nil {
			t.Errorf("LanguageFor(%s): %v", path, err)
			continue
		}
		if got != want {
			t.Errorf("LanguageFor(%s) = %s, want %s", path, got, want)
		}
	}

	if _, err := LanguageFor("notes.md"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestParseSource_TypeScript(t *testing.T) {
	src := []byte("import { greet } from './a';\ngreet('Alice');\n")
	tree, lang, err := ParseSource(context.Background(), "index.ts", src)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	defer tree.Close()

	if lang != LangTypeScript {
		t.Errorf("lang = %s", lang)
	}
	root := tree.RootNode()
	if root.Type() != "program" {
		t.Errorf("root type = %s", root.Type())
	}
	first := root.NamedChild(0)
	if first.Type() != "import_statement" {
		t.Fatalf("first statement = %s", first.Type())
	}
	if got := NodeText(first.ChildByFieldName("source"), src); got != "'./a'" {
		t.Errorf("source text = %s", got)
	}
	if FirstError(root) != nil {
		t.Error("clean source reported an error node")
	}
}

func TestFirstError_Rust(t *testing.T) {
	src := []byte("pub struct Person {\n    name: String,\n    age: \n")
	tree, err := ParseLanguage(context.Background(), LangRust, src)
	if err != nil {
		t.Fatalf("ParseLanguage: %v", err)
	}
	defer tree.Close()

	if FirstError(tree.RootNode()) == nil {
		t.Error("expected an error node for truncated struct")
	}
}

func TestParserFactory_ConcurrentUse(t *testing.T) {
	f := NewParserFactory()
	src := []byte("export const x = import('./lazy');\n")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, err := f.Parse(context.Background(), LangTypeScript, src)
			if err != nil {
				errs <- err
				return
			}
			tree.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent parse: %v", err)
	}
}

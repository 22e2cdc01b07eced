package esm

import (
	"bytes"
	"context"
	"path/filepath"
)

// Edit replaces the contents of one specifier literal.
type Edit struct {
	Specifier   Specifier `json:"specifier"`
	Replacement string    `json:"replacement"`
}

// RewriteSource rewrites every relative specifier in content that resolves
// to a different ESM form. Only the bytes inside the affected string
// literals change; quotes and everything else are preserved. When nothing
// changes the original slice is returned.
func RewriteSource(ctx context.Context, path string, content []byte, r *Resolver) ([]byte, []Edit, error) {
	specs, err := FindSpecifiers(ctx, path, content)
	if err != nil {
		return nil, nil, err
	}

	dir := filepath.Dir(path)
	var edits []Edit
	for _, s := range specs {
		repl, ok := r.Resolve(dir, s.Value)
		if !ok || repl == s.Value {
			continue
		}
		edits = append(edits, Edit{Specifier: s, Replacement: repl})
	}
	if len(edits) == 0 {
		return content, nil, nil
	}

	var buf bytes.Buffer
	buf.Grow(len(content) + 16*len(edits))
	var last uint32
	for _, e := range edits {
		buf.Write(content[last:e.Specifier.Start])
		buf.WriteString(e.Replacement)
		last = e.Specifier.End
	}
	buf.Write(content[last:])
	return buf.Bytes(), edits, nil
}

package parser

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.go", LangGo},
		{"lib.rs", LangRust},
		{"app.py", LangPython},
		{"index.js", LangJavaScript},
		{"server.mjs", LangJavaScript},
		{"api.ts", LangTypeScript},
		{"view.tsx", LangTSX},
		{"view.jsx", LangTSX},
		{"Main.java", LangJava},
		{"worker.rb", LangRuby},
		{"tasks.rake", LangRuby},
		{"README.md", LangUnknown},
		{"Makefile", LangUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.path), tt.path)
	}
}

func TestAnalyzerLanguage(t *testing.T) {
	assert.Equal(t, LangTypeScript, AnalyzerLanguage(LangTSX))
	assert.Equal(t, LangGo, AnalyzerLanguage(LangGo))
	assert.Equal(t, LangRuby, AnalyzerLanguage(LangRuby))
}

func TestParseGoSource(t *testing.T) {
	p := New()
	defer p.Close()

	src := []byte("package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	result, err := p.Parse(src, LangGo, "main.go")
	require.NoError(t, err)
	require.NotNil(t, result.Tree)

	root := result.Tree.RootNode()
	assert.Equal(t, "source_file", root.Type())
	assert.False(t, root.HasError())
}

func TestParseEachSupportedLanguage(t *testing.T) {
	sources := map[Language]string{
		LangGo:         "package p\nfunc f() {}\n",
		LangRust:       "fn main() {}\n",
		LangPython:     "def f():\n    pass\n",
		LangJavaScript: "function f() {}\n",
		LangTypeScript: "function f(): void {}\n",
		LangJava:       "class A { void f() {} }\n",
		LangRuby:       "def f\nend\n",
	}

	for lang, src := range sources {
		t.Run(string(lang), func(t *testing.T) {
			p := New()
			defer p.Close()
			result, err := p.Parse([]byte(src), lang, "fixture")
			require.NoError(t, err)
			assert.False(t, result.Tree.RootNode().HasError())
		})
	}
}

func TestWalkCollectsFunctionNames(t *testing.T) {
	p := New()
	defer p.Close()

	src := []byte("package p\nfunc a() { b() }\nfunc b() {}\n")
	result, err := p.Parse(src, LangGo, "p.go")
	require.NoError(t, err)

	var names []string
	Walk(result.Tree.RootNode(), src, func(node *sitter.Node, source []byte) bool {
		if node.Type() == "function_declaration" {
			names = append(names, GetNodeText(node.ChildByFieldName("name"), source))
		}
		return true
	})
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestGetNodeTextNilNode(t *testing.T) {
	assert.Equal(t, "", GetNodeText(nil, []byte("x")))
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.ParseFile("testdata-does-not-exist.zig")
	assert.Error(t, err)
}

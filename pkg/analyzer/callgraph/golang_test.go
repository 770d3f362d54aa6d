package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/parser"
)

func TestGoDirectCallResolution(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangGo, map[string]string{
		"main.go": `package main

func main() {
	helper()
}

func helper() {}
`,
	})

	main := findNode(t, g, "main")
	assert.True(t, main.Entrypoint)
	assert.Equal(t, "program start", main.EntryReason)
	assert.Equal(t, "main", main.Sym.Module)

	conf, ok := hasEdge(g, "main", "helper")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

func TestGoMethodReceiver(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangGo, map[string]string{
		"srv/server.go": `package srv

type Server struct{}

func (s *Server) Start() {
	s.listen()
}

func (s *Server) listen() {}
`,
	})

	start := findNode(t, g, "Start")
	assert.Equal(t, "Server", start.Sym.Receiver)
	assert.Equal(t, "srv", start.Sym.Module)

	conf, ok := hasEdge(g, "Start", "listen")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

func TestGoImportedCallCreatesExternalNode(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangGo, map[string]string{
		"main.go": `package main

import "github.com/acme/jwtlib"

func main() {
	jwtlib.Parse("token")
}
`,
	})

	parse := findNode(t, g, "Parse")
	assert.Equal(t, "github.com/acme/jwtlib", parse.Sym.Module)

	conf, ok := hasEdge(g, "main", "Parse")
	require.True(t, ok)
	assert.Equal(t, graph.Conservative, conf)
}

func TestGoImportAliasResolvesToVendoredSource(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangGo, map[string]string{
		"main.go": `package main

import lib "github.com/acme/lib"

func main() {
	lib.Do()
}
`,
		"vendor/github.com/acme/lib/lib.go": `package lib

func Do() {}
`,
	})

	do := findNode(t, g, "Do")
	assert.Equal(t, "github.com/acme/lib", do.Sym.Module)

	conf, ok := hasEdge(g, "main", "Do")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf, "vendored source should resolve definitely")
}

func TestGoTestFunctionEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangGo, map[string]string{
		"x/thing_test.go": `package x

func TestThing(t *testing.T) {
	setup()
}

func setup() {}
`,
	})

	tt := findNode(t, g, "TestThing")
	assert.True(t, tt.Entrypoint)
	assert.Equal(t, "test function", tt.EntryReason)

	setup := findNode(t, g, "setup")
	assert.False(t, setup.Entrypoint)
}

func TestGoReflectionRoutesThroughSink(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangGo, map[string]string{
		"main.go": `package main

import "reflect"

func main() {
	reflect.ValueOf(target).MethodByName("Run")
}

func target() {}
`,
	})

	conf, ok := hasEdge(g, "main", sinkName)
	require.True(t, ok)
	assert.Equal(t, graph.Conservative, conf)

	// Dynamic dispatch may reach anything in the module.
	_, ok = hasEdge(g, sinkName, "target")
	assert.True(t, ok)
}

func TestGoHandlerRegistrationPromotesEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangGo, map[string]string{
		"main.go": `package main

import "net/http"

func main() {
	http.HandleFunc("/", handleIndex)
}

func handleIndex(w http.ResponseWriter, r *http.Request) {}
`,
	})

	h := findNode(t, g, "handleIndex")
	assert.True(t, h.Entrypoint)
	assert.Equal(t, "registered via HandleFunc", h.EntryReason)
}

package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/parser"
)

func TestTSDecoratorEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangTypeScript, map[string]string{
		"users.controller.ts": `class UsersController {
  @Get("/users")
  findAll() {
    return this.load();
  }

  load() {
    return [];
  }
}
`,
	})

	findAll := findNode(t, g, "findAll")
	assert.True(t, findAll.Entrypoint)
	assert.Equal(t, "http handler", findAll.EntryReason)
	assert.Equal(t, "UsersController", findAll.Sym.Receiver)

	conf, ok := hasEdge(g, "findAll", "load")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

func TestTSXFoldsOntoTypeScriptAdapter(t *testing.T) {
	a, ok := ForLanguage(parser.LangTSX, nil)
	require.True(t, ok)
	assert.Equal(t, parser.LangTypeScript, a.Language())
}

func TestTSMethodResolutionThroughThis(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangTypeScript, map[string]string{
		"svc.ts": `class Service {
  run(): void {
    this.step();
  }

  step(): void {}
}
`,
	})

	conf, ok := hasEdge(g, "run", "step")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/parser"
)

func TestPythonRouteDecoratorEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangPython, map[string]string{
		"web.py": `@app.route("/users")
def list_users():
    return fetch_users()

def fetch_users():
    return []
`,
	})

	handler := findNode(t, g, "list_users")
	assert.True(t, handler.Entrypoint)
	assert.Equal(t, "framework handler", handler.EntryReason)

	conf, ok := hasEdge(g, "list_users", "fetch_users")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

func TestPythonMainGuardTopLevelEntry(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangPython, map[string]string{
		"tool.py": `def run():
    pass

if __name__ == "__main__":
    run()
`,
	})

	top := findNode(t, g, topLevelName)
	assert.True(t, top.Entrypoint)
	assert.Equal(t, "script entry", top.EntryReason)
	assert.True(t, top.Synthetic)

	conf, ok := hasEdge(g, topLevelName, "run")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

func TestPythonGetattrSinkReachability(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangPython, map[string]string{
		"app.py": `def vulnerable():
    pass

def run():
    f = getattr(handlers, "x")
    f()

if __name__ == "__main__":
    run()
`,
	})

	conf, ok := hasEdge(g, "run", sinkName)
	require.True(t, ok)
	assert.Equal(t, graph.Conservative, conf)

	conservative := graph.Solve(g, graph.PolicyConservative)
	strict := graph.Solve(g, graph.PolicyStrict)

	vuln := findNode(t, g, "vulnerable")
	assert.True(t, conservative.Reachable(vuln.ID),
		"dynamic dispatch must keep the vulnerable function reachable")
	assert.False(t, strict.Reachable(vuln.ID))
}

func TestPythonImportAliasBinding(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangPython, map[string]string{
		"client.py": `import requests as rq

def fetch(url):
    return rq.get(url)
`,
	})

	get := findNode(t, g, "get")
	assert.Equal(t, "requests", get.Sym.Module)

	conf, ok := hasEdge(g, "fetch", "get")
	require.True(t, ok)
	assert.Equal(t, graph.Conservative, conf)
}

func TestPythonModulePaths(t *testing.T) {
	r := pyRules{}
	assert.Equal(t, "pkg.mod", r.Module("pkg/mod.py"))
	assert.Equal(t, "pkg", r.Module("pkg/__init__.py"))
	assert.Equal(t, "yaml.loader", r.Module("venv/lib/python3.11/site-packages/yaml/loader.py"))
}

func TestPythonSplatParamsCoarsenArity(t *testing.T) {
	frag := analyzeFragment(t, parser.LangPython, map[string]string{
		"v.py": `def variadic(*args, **kwargs):
    pass
`,
	}, nil)

	for _, n := range frag.Nodes {
		if n.Sym.Name == "variadic" {
			assert.True(t, n.Sym.CoarseSignature())
			return
		}
	}
	t.Fatal("variadic not found")
}

func TestPythonTestFunctionEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangPython, map[string]string{
		"test_app.py": `def test_roundtrip():
    helper()

def helper():
    pass
`,
	})

	tf := findNode(t, g, "test_roundtrip")
	assert.True(t, tf.Entrypoint)
	assert.Equal(t, "test function", tf.EntryReason)
}

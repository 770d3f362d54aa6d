package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/parser"
)

func TestJavaMainEntryAndResolution(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangJava, map[string]string{
		"src/main/java/com/acme/App.java": `package com.acme;

public class App {
    public static void main(String[] args) {
        boot();
    }

    static void boot() {}
}
`,
	})

	main := findNode(t, g, "main")
	assert.True(t, main.Entrypoint)
	assert.Equal(t, "program start", main.EntryReason)
	assert.Equal(t, "com.acme", main.Sym.Module)
	assert.Equal(t, "App", main.Sym.Receiver)

	conf, ok := hasEdge(g, "main", "boot")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

func TestJavaMappingAnnotationEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangJava, map[string]string{
		"src/main/java/com/acme/UserController.java": `package com.acme;

public class UserController {
    @GetMapping("/users")
    public List<User> list() {
        return repo.findAll();
    }
}
`,
	})

	list := findNode(t, g, "list")
	assert.True(t, list.Entrypoint)
	assert.Equal(t, "http handler", list.EntryReason)
}

func TestJavaImportBindsExternalPackage(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangJava, map[string]string{
		"src/main/java/com/acme/Util.java": `package com.acme;

import org.apache.commons.text.StringEscapeUtils;

public class Util {
    public String clean(String s) {
        return StringEscapeUtils.escapeHtml4(s);
    }
}
`,
	})

	esc := findNode(t, g, "escapeHtml4")
	assert.Equal(t, "org.apache.commons.text", esc.Sym.Module)

	conf, ok := hasEdge(g, "clean", "escapeHtml4")
	require.True(t, ok)
	assert.Equal(t, graph.Conservative, conf)
}

func TestJavaConstructorCall(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangJava, map[string]string{
		"src/main/java/com/acme/Factory.java": `package com.acme;

public class Factory {
    public Widget make() {
        return new Widget();
    }
}

class Widget {
    Widget() {}
}
`,
	})

	_, ok := hasEdge(g, "make", "Widget")
	assert.True(t, ok, "object creation should call the constructor")
}

func TestJavaReflectiveInvocationSink(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangJava, map[string]string{
		"src/main/java/com/acme/Dyn.java": `package com.acme;

public class Dyn {
    public void run(Method m, Object target) throws Exception {
        m.invoke(target);
    }
}
`,
	})

	conf, ok := hasEdge(g, "run", sinkName)
	require.True(t, ok)
	assert.Equal(t, graph.Conservative, conf)
}

package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/parser"
)

func TestRubyMethodResolution(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangRuby, map[string]string{
		"lib/worker.rb": `def prepare(x)
  x
end

def run
  prepare(1)
end
`,
	})

	conf, ok := hasEdge(g, "run", "prepare")
	require.True(t, ok)
	assert.Equal(t, graph.Definite, conf)
}

func TestRubyControllerActionEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangRuby, map[string]string{
		"app/controllers/users_controller.rb": `class UsersController
  def show
    load_user(params)
  end

  def load_user(params)
  end
end
`,
	})

	show := findNode(t, g, "show")
	assert.True(t, show.Entrypoint)
	assert.Equal(t, "controller action", show.EntryReason)
	assert.Equal(t, "UsersController", show.Sym.Receiver)
}

func TestRubySendRoutesThroughSink(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangRuby, map[string]string{
		"lib/dyn.rb": `class Dispatcher
  def route(target, name)
    target.send(name)
  end

  def hidden
  end
end
`,
	})

	conf, ok := hasEdge(g, "route", sinkName)
	require.True(t, ok)
	assert.Equal(t, graph.Conservative, conf)

	_, ok = hasEdge(g, sinkName, "hidden")
	assert.True(t, ok, "sink must cover module members")
}

func TestRubyBackgroundJobEntrypoint(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangRuby, map[string]string{
		"app/jobs/cleanup_job.rb": `class CleanupJob
  def perform
    sweep(1)
  end

  def sweep(n)
  end
end
`,
	})

	perform := findNode(t, g, "perform")
	assert.True(t, perform.Entrypoint)
	assert.Equal(t, "background job", perform.EntryReason)
}

func TestRubyBeforeActionPromotesSymbolArg(t *testing.T) {
	_, g := analyzeFixture(t, parser.LangRuby, map[string]string{
		"app/controllers/base_controller.rb": `class BaseController
  before_action :authenticate

  def authenticate
  end
end
`,
	})

	auth := findNode(t, g, "authenticate")
	assert.True(t, auth.Entrypoint)
	assert.Equal(t, "registered via before_action", auth.EntryReason)
}

func TestRubyGemModulePath(t *testing.T) {
	r := rubyRules{}
	assert.Equal(t, "rack/request", r.Module("vendor/bundle/ruby/3.2.0/gems/rack-3.0.8/lib/rack/request.rb"))
	assert.Equal(t, "models/user", r.Module("app/models/user.rb"))
}

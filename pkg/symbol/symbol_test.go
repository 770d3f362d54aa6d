package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDeterminism(t *testing.T) {
	a := New("go", "github.com/acme/pkg", "Client", "Do", 2)
	b := New("go", "github.com/acme/pkg", "Client", "Do", 2)
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a, b)
}

func TestKeyDistinguishesArity(t *testing.T) {
	exact := New("python", "app.views", "", "render", 2)
	coarse := Coarse("python", "app.views", "render")
	assert.NotEqual(t, exact.Key(), coarse.Key())
	assert.Equal(t, exact.CoarseKey(), coarse.CoarseKey())
}

func TestCoarseSignature(t *testing.T) {
	assert.True(t, Coarse("ruby", "app", "perform").CoarseSignature())
	assert.False(t, New("ruby", "app", "", "perform", 0).CoarseSignature())
}

func TestParseAdvisorySymbol(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		module string
		fn     string
		recv   string
	}{
		{"plain function", "yaml.Unmarshal", "yaml", "Unmarshal", ""},
		{"pathed module", "github.com/acme/jwt.Parse", "github.com/acme/jwt", "Parse", ""},
		{"method", "github.com/acme/jwt.Parser.Parse", "github.com/acme/jwt", "Parse", "Parser"},
		{"bare name", "Parse", "", "Parse", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, ok := ParseAdvisorySymbol("go", tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.module, sym.Module)
			assert.Equal(t, tt.fn, sym.Name)
			assert.Equal(t, tt.recv, sym.Receiver)
			assert.True(t, sym.CoarseSignature())
		})
	}

	_, ok := ParseAdvisorySymbol("go", "   ")
	assert.False(t, ok)
}

func TestInterner(t *testing.T) {
	in := NewInterner(8)

	a := in.Intern(New("go", "m", "", "f", 1))
	b := in.Intern(New("go", "m", "", "f", 1))
	c := in.Intern(New("go", "m", "", "f", 2))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, in.Len())

	id, ok := in.Lookup(New("go", "m", "", "f", 2))
	require.True(t, ok)
	assert.Equal(t, c, id)

	// Coarse lookup finds both arities under the shared coarse key.
	ids := in.LookupCoarse(Coarse("go", "m", "f"))
	assert.ElementsMatch(t, []uint32{a, c}, ids)

	assert.Equal(t, "f", in.Symbol(a).Name)
}

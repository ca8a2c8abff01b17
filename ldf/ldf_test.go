package ldf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/lattice"
)

const honeycomb = `
# honeycomb unit cell with Heisenberg exchange
<site id="0" x="0" y="0" z="0" parametrized="true"/>
<site id="1" x="1" y="0" z="0"/>
<bond from="0" to="1"/>
<interaction from="0" to="1" value="[[1,0,0],[0,1,0],[0,0,1]]"/>
`

func TestParse(t *testing.T) {
	def, err := Parse(strings.NewReader(honeycomb))
	require.NoError(t, err)

	require.Len(t, def.Sites, 2)
	assert.Equal(t, Site{ID: 0, Position: lattice.Vec3{0, 0, 0}, Parametrized: true}, def.Sites[0])
	assert.Equal(t, Site{ID: 1, Position: lattice.Vec3{1, 0, 0}}, def.Sites[1])

	require.Len(t, def.Bonds, 1)
	assert.Equal(t, Bond{From: 0, To: 1}, def.Bonds[0])

	require.Len(t, def.Interactions, 1)
	assert.Equal(t, container.Tensor{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, def.Interactions[0].Coupling)

	s, ok := def.Site(1)
	require.True(t, ok)
	assert.Equal(t, 1, s.ID)

	_, ok = def.Site(7)
	assert.False(t, ok)
}

func TestParseMatrixSpacingAndSigns(t *testing.T) {
	def, err := Parse(strings.NewReader(`
<site id="0" x="0" y="0" z="0"/>
<site id="1" x="1" y="0" z="0"/>
<interaction from="0" to="1" value="[[ -1, 0.5, 0 ], [ 0.5, -1, 0 ], [ 0, 0, 2e-1 ]]"/>
`))
	require.NoError(t, err)
	require.Len(t, def.Interactions, 1)
	assert.Equal(t, container.Tensor{{-1, 0.5, 0}, {0.5, -1, 0}, {0, 0, 0.2}}, def.Interactions[0].Coupling)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "NotAnElement",
			input:  `site id="0"`,
			reason: "not a self-closing element",
		},
		{
			name:   "UnknownElement",
			input:  `<vertex id="0"/>`,
			reason: "unknown element",
		},
		{
			name:   "MissingAttribute",
			input:  `<site id="0" x="0" y="0"/>`,
			reason: `missing attribute "z"`,
		},
		{
			name:   "DuplicateSite",
			input:  "<site id=\"0\" x=\"0\" y=\"0\" z=\"0\"/>\n<site id=\"0\" x=\"1\" y=\"0\" z=\"0\"/>",
			reason: "duplicate site id",
		},
		{
			name:   "UndeclaredBondSite",
			input:  "<site id=\"0\" x=\"0\" y=\"0\" z=\"0\"/>\n<bond from=\"0\" to=\"3\"/>",
			reason: "undeclared site id 3",
		},
		{
			name:   "BadMatrixShape",
			input:  "<site id=\"0\" x=\"0\" y=\"0\" z=\"0\"/>\n<interaction from=\"0\" to=\"0\" value=\"[[1,0],[0,1]]\"/>",
			reason: "coupling matrix",
		},
		{
			name:   "UnterminatedQuote",
			input:  `<site id="0 x="0" y="0" z="0"/>`,
			reason: "unterminated quote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, pe.Reason, tt.reason)
		})
	}
}

func TestParseErrorLineNumbers(t *testing.T) {
	input := "<site id=\"0\" x=\"0\" y=\"0\" z=\"0\"/>\n\n<bond from=\"0\" to=\"9\"/>"
	_, err := Parse(strings.NewReader(input))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

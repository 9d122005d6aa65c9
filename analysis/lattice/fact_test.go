package lattice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takin-dev/takin/ir"
)

func testVars(n int) []*ir.Var {
	p := ir.NewProgram()
	c := p.NewClass("C", nil)
	b := c.NewStaticMethod("m", ir.Void)
	vars := make([]*ir.Var, n)
	for i := range vars {
		vars[i] = b.Local(string(rune('a'+i)), ir.Int)
	}
	return vars
}

func TestFactAbsentIsUndef(t *testing.T) {
	vs := testVars(2)
	f := NewCPFact()
	require.Equal(t, Undef(), f.Get(vs[0]))

	require.True(t, f.Update(vs[0], MakeConstant(3)))
	require.Equal(t, MakeConstant(3), f.Get(vs[0]))
	require.False(t, f.Update(vs[0], MakeConstant(3)))

	// setting back to UNDEF removes the key
	require.True(t, f.Update(vs[0], Undef()))
	require.Equal(t, 0, f.Len())
	require.False(t, f.Update(vs[1], Undef()))
}

func TestFactCopyAndEquals(t *testing.T) {
	vs := testVars(2)
	f := NewCPFact()
	f.Update(vs[0], MakeConstant(1))
	f.Update(vs[1], NAC())

	g := f.Copy()
	require.True(t, f.Equals(g))

	g.Update(vs[0], MakeConstant(2))
	require.False(t, f.Equals(g))
	require.Equal(t, MakeConstant(1), f.Get(vs[0]), "copy must be independent")

	g.CopyFrom(f)
	require.True(t, f.Equals(g))
}

func TestFactMeetInto(t *testing.T) {
	vs := testVars(3)
	f := NewCPFact()
	f.Update(vs[0], MakeConstant(1))
	f.Update(vs[1], MakeConstant(5))

	target := NewCPFact()
	target.Update(vs[0], MakeConstant(2))
	target.Update(vs[2], MakeConstant(9))

	f.MeetInto(target)
	require.Equal(t, NAC(), target.Get(vs[0]))
	require.Equal(t, MakeConstant(5), target.Get(vs[1]))
	require.Equal(t, MakeConstant(9), target.Get(vs[2]))
}

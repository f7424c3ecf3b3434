package payload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueConstructorsRoundTrip(t *testing.T) {
	i := Integer(42)
	n, ok := i.Integer()
	require.True(t, ok)
	require.Equal(t, int64(42), n)

	f := Float(3.5)
	fv, ok := f.Float()
	require.True(t, ok)
	require.Equal(t, 3.5, fv)

	k := Keyword("red")
	kv, ok := k.Keyword()
	require.True(t, ok)
	require.Equal(t, "red", kv)

	g := Geo(12.5, -1.2)
	gp, ok := g.GeoPoint()
	require.True(t, ok)
	require.Equal(t, 12.5, gp.Lat)

	l := List(Integer(1), Integer(2))
	items, ok := l.List()
	require.True(t, ok)
	require.Len(t, items, 2)
}

func TestValueCrossKindAccessorsFail(t *testing.T) {
	i := Integer(1)
	_, ok := i.Keyword()
	require.False(t, ok)
	_, ok = i.GeoPoint()
	require.False(t, ok)
}

func TestAsNumeric(t *testing.T) {
	n, ok := Integer(7).AsNumeric()
	require.True(t, ok)
	require.Equal(t, float64(7), n)

	n, ok = Float(7.5).AsNumeric()
	require.True(t, ok)
	require.Equal(t, 7.5, n)

	_, ok = Keyword("x").AsNumeric()
	require.False(t, ok)
}

func TestPayloadMergeAndClone(t *testing.T) {
	p := Payload{"color": Keyword("red")}
	clone := p.Clone()
	clone.Merge(Payload{"size": Integer(10)})

	require.Len(t, p, 1, "original payload must not be mutated by merging into the clone")
	require.Len(t, clone, 2)
}

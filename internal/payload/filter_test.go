package payload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchCondition(t *testing.T) {
	cond := NewMatch("color", Keyword("red"))
	require.True(t, cond.Matches(Payload{"color": Keyword("red")}))
	require.False(t, cond.Matches(Payload{"color": Keyword("blue")}))
	require.False(t, cond.Matches(Payload{}))
}

func TestRangeCondition(t *testing.T) {
	cond := NewRange("price").Gte(10).Lte(20)
	require.True(t, cond.Matches(Payload{"price": Integer(15)}))
	require.False(t, cond.Matches(Payload{"price": Integer(25)}))
	require.False(t, cond.Matches(Payload{"price": Keyword("nope")}))
}

func TestGeoRadiusCondition(t *testing.T) {
	// Roughly 1km apart, well within a 5km radius.
	cond := NewGeoRadius("location", GeoPoint{Lat: 40.7128, Lon: -74.0060}, 5000)
	require.True(t, cond.Matches(Payload{"location": Geo(40.7128, -73.9960)}))

	far := NewGeoRadius("location", GeoPoint{Lat: 40.7128, Lon: -74.0060}, 100)
	require.False(t, far.Matches(Payload{"location": Geo(51.5074, -0.1278)}))
}

func TestFilterMustShouldMustNot(t *testing.T) {
	f := &Filter{
		Must:    []Condition{NewMatch("color", Keyword("red"))},
		Should:  []Condition{NewMatch("size", Integer(10)), NewMatch("size", Integer(20))},
		MustNot: []Condition{NewMatch("discontinued", Integer(1))},
	}

	require.True(t, f.Matches(Payload{"color": Keyword("red"), "size": Integer(10)}))
	require.False(t, f.Matches(Payload{"color": Keyword("blue"), "size": Integer(10)}))
	require.False(t, f.Matches(Payload{"color": Keyword("red"), "size": Integer(99)}))
	require.False(t, f.Matches(Payload{"color": Keyword("red"), "size": Integer(10), "discontinued": Integer(1)}))
}

func TestNilFilterMatchesEverything(t *testing.T) {
	var f *Filter
	require.True(t, f.Matches(Payload{}))
}

func TestFilterKeysDeduplicates(t *testing.T) {
	f := &Filter{
		Must:   []Condition{NewMatch("color", Keyword("red"))},
		Should: []Condition{NewMatch("color", Keyword("blue"))},
	}
	require.Equal(t, []string{"color"}, f.Keys())
}

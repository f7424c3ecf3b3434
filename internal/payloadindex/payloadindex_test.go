package payloadindex

import (
	"testing"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/stretchr/testify/require"
)

type fakeOffsets struct {
	offsets []uint32
}

func (f fakeOffsets) IterOffsets(fn func(offset uint32)) {
	for _, o := range f.offsets {
		fn(o)
	}
}
func (f fakeOffsets) Count() uint64 { return uint64(len(f.offsets)) }

type fakePayloads struct {
	byOffset map[uint32]payload.Payload
}

func (f fakePayloads) Get(offset uint32) (payload.Payload, bool) {
	p, ok := f.byOffset[offset]
	return p, ok
}

func collect(seq func(func(uint32) bool)) []uint32 {
	var out []uint32
	seq(func(o uint32) bool {
		out = append(out, o)
		return true
	})
	return out
}

func testFixture() (fakeOffsets, fakePayloads) {
	offsets := fakeOffsets{offsets: []uint32{0, 1, 2, 3}}
	payloads := fakePayloads{byOffset: map[uint32]payload.Payload{
		0: {"color": payload.Keyword("red"), "price": payload.Integer(10)},
		1: {"color": payload.Keyword("blue"), "price": payload.Integer(20)},
		2: {"color": payload.Keyword("red"), "price": payload.Integer(30)},
		3: {"color": payload.Keyword("green"), "price": payload.Integer(40)},
	}}
	return offsets, payloads
}

func TestPlainQueryPointsFullScan(t *testing.T) {
	offsets, payloads := testFixture()
	idx := NewPlain(offsets, payloads)

	f := &payload.Filter{Must: []payload.Condition{payload.NewMatch("color", payload.Keyword("red"))}}
	got := collect(idx.QueryPoints(f))
	require.ElementsMatch(t, []uint32{0, 2}, got)
}

func TestPlainEstimateCardinalityIsTotalLive(t *testing.T) {
	offsets, payloads := testFixture()
	idx := NewPlain(offsets, payloads)

	est := idx.EstimateCardinality(nil)
	require.Equal(t, uint64(4), est.Expected)
}

func TestStructQueryPointsUsesIndexedField(t *testing.T) {
	offsets, payloads := testFixture()
	idx := NewStruct(offsets, payloads)
	idx.SetIndexed("color")

	f := &payload.Filter{Must: []payload.Condition{payload.NewMatch("color", payload.Keyword("red"))}}
	got := collect(idx.QueryPoints(f))
	require.ElementsMatch(t, []uint32{0, 2}, got)
}

func TestStructRangeQuery(t *testing.T) {
	offsets, payloads := testFixture()
	idx := NewStruct(offsets, payloads)
	idx.SetIndexed("price")

	f := &payload.Filter{Must: []payload.Condition{payload.NewRange("price").Gte(15).Lte(35)}}
	got := collect(idx.QueryPoints(f))
	require.ElementsMatch(t, []uint32{1, 2}, got)
}

func TestStructFallsBackForUnindexedField(t *testing.T) {
	offsets, payloads := testFixture()
	idx := NewStruct(offsets, payloads)
	// "color" is never indexed; QueryPoints must still work by scanning.
	f := &payload.Filter{Must: []payload.Condition{payload.NewMatch("color", payload.Keyword("green"))}}
	got := collect(idx.QueryPoints(f))
	require.ElementsMatch(t, []uint32{3}, got)
}

func TestStructUpsertAndRemoveKeepPostingsInSync(t *testing.T) {
	offsets, payloads := testFixture()
	idx := NewStruct(offsets, payloads)
	idx.SetIndexed("color")

	idx.Upsert(1, payload.Payload{"color": payload.Keyword("red")})
	f := &payload.Filter{Must: []payload.Condition{payload.NewMatch("color", payload.Keyword("red"))}}
	got := collect(idx.QueryPoints(f))
	require.ElementsMatch(t, []uint32{0, 1, 2}, got)

	idx.Remove(0)
	got = collect(idx.QueryPoints(f))
	require.ElementsMatch(t, []uint32{1, 2}, got)
}

func TestStructDropIndex(t *testing.T) {
	offsets, payloads := testFixture()
	idx := NewStruct(offsets, payloads)
	idx.SetIndexed("color")
	require.Contains(t, idx.IndexedFields(), "color")

	idx.DropIndex("color")
	require.NotContains(t, idx.IndexedFields(), "color")
}

package payload

import "math"

// Condition is one leaf predicate a Filter evaluates against a single
// point's Payload. Every payload index (plain.go, struct.go) must be able
// to answer, for a given Condition, whether a payload satisfies it —
// struct.go additionally answers it without visiting the payload at all
// when the field is indexed.
type Condition interface {
	// Matches reports whether the payload satisfies this condition.
	// Used by the plain index's full scan and as the fallback path for
	// unindexed fields in the struct index.
	Matches(p Payload) bool

	// Key returns the payload field this condition reads, so the struct
	// index can look up the right inverted structure.
	Key() string
}

// Match is an exact-equality condition: Key() == the keyword or integer
// wrapped in Value.
type Match struct {
	key   string
	value Value
}

func NewMatch(key string, value Value) Match { return Match{key: key, value: value} }

func (m Match) Key() string { return m.key }

// Value returns the value this Match compares equality against, so
// payload indices can look up the right posting list without having to
// probe Matches against synthetic payloads.
func (m Match) Value() Value { return m.value }

func (m Match) Matches(p Payload) bool {
	v, ok := p[m.key]
	if !ok {
		return false
	}
	return valueEqual(v, m.value)
}

func valueEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInteger:
		return a.integer == b.integer
	case KindFloat:
		return a.float == b.float
	case KindKeyword:
		return a.keyword == b.keyword
	case KindGeo:
		return a.geo == b.geo
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !valueEqual(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Range is a numeric interval condition: Gte <= value <= Lte, with either
// bound optional (math.Inf(-1)/math.Inf(1) meaning unbounded). It matches
// against KindInteger and KindFloat values via Value.AsNumeric.
type Range struct {
	key        string
	gte, lte   float64
	hasGte     bool
	hasLte     bool
}

func NewRange(key string) Range {
	return Range{key: key, gte: math.Inf(-1), lte: math.Inf(1)}
}

func (r Range) Gte(v float64) Range { r.gte, r.hasGte = v, true; return r }
func (r Range) Lte(v float64) Range { r.lte, r.hasLte = v, true; return r }

func (r Range) Key() string { return r.key }

// Bounds reports the configured lower/upper bounds and whether each was
// actually set via Gte/Lte (as opposed to the default +/-Inf sentinel).
func (r Range) Bounds() (gte float64, hasGte bool, lte float64, hasLte bool) {
	return r.gte, r.hasGte, r.lte, r.hasLte
}

func (r Range) Matches(p Payload) bool {
	v, ok := p[r.key]
	if !ok {
		return false
	}
	n, ok := v.AsNumeric()
	if !ok {
		return false
	}
	if r.hasGte && n < r.gte {
		return false
	}
	if r.hasLte && n > r.lte {
		return false
	}
	return true
}

// GeoRadius matches points whose geo payload field lies within Radius
// meters of Center, using the haversine formula.
type GeoRadius struct {
	key    string
	center GeoPoint
	radius float64 // meters
}

func NewGeoRadius(key string, center GeoPoint, radiusMeters float64) GeoRadius {
	return GeoRadius{key: key, center: center, radius: radiusMeters}
}

func (g GeoRadius) Key() string { return g.key }

func (g GeoRadius) Matches(p Payload) bool {
	v, ok := p[g.key]
	if !ok {
		return false
	}
	point, ok := v.GeoPoint()
	if !ok {
		return false
	}
	return haversineMeters(g.center, point) <= g.radius
}

const earthRadiusMeters = 6371000.0

func haversineMeters(a, b GeoPoint) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLat := lat2 - lat1
	dLon := toRad(b.Lon) - toRad(a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Filter is the conjunction/disjunction tree spec.md §4.4 describes:
// "query languages beyond filter conjunctions over payload fields"
// (spec.md §1 Non-goals) plus the disjunction ("Should") the struct index
// explicitly handles via union (spec.md §4.4). At least one of Must,
// Should must be non-empty for a non-trivial filter; MustNot negates.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// And builds a Filter requiring every condition to hold.
func And(conditions ...Condition) *Filter {
	return &Filter{Must: conditions}
}

// Or builds a Filter requiring at least one condition to hold.
func Or(conditions ...Condition) *Filter {
	return &Filter{Should: conditions}
}

// Matches evaluates the full filter tree against a payload by full scan;
// this is exactly what the Plain payload index's query_points does row by
// row (spec.md §4.4), and what the struct index falls back to for any
// condition whose field isn't indexed.
func (f *Filter) Matches(p Payload) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		if !c.Matches(p) {
			return false
		}
	}
	for _, c := range f.MustNot {
		if c.Matches(p) {
			return false
		}
	}
	if len(f.Should) > 0 {
		any := false
		for _, c := range f.Should {
			if c.Matches(p) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

// Keys returns the set of payload fields referenced anywhere in the
// filter, deduplicated. Used by the struct index to decide which of its
// conditions can be served by an inverted structure versus must fall back
// to a scan.
func (f *Filter) Keys() []string {
	if f == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var keys []string
	add := func(conds []Condition) {
		for _, c := range conds {
			if _, ok := seen[c.Key()]; !ok {
				seen[c.Key()] = struct{}{}
				keys = append(keys, c.Key())
			}
		}
	}
	add(f.Must)
	add(f.Should)
	add(f.MustNot)
	return keys
}

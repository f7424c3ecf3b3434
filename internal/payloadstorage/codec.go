package payloadstorage

import "github.com/iamNilotpal/vectorcollection/internal/payload"

// wireValue is the gob-encodable mirror of payload.Value. gob only
// encodes exported fields, and payload.Value deliberately keeps its
// fields private so only its constructors can produce a well-formed
// tagged union (see internal/payload's doc comment) — wireValue is the
// one-off adapter that lets this package own the codec spec.md §1 keeps
// out of scope, without leaking payload.Value's internals.
type wireValue struct {
	Kind    payload.Kind
	Integer int64
	Float   float64
	Keyword string
	GeoLat  float64
	GeoLon  float64
	List    []wireValue
}

func toWire(v payload.Value) wireValue {
	w := wireValue{Kind: v.Kind()}
	switch w.Kind {
	case payload.KindInteger:
		w.Integer, _ = v.Integer()
	case payload.KindFloat:
		w.Float, _ = v.Float()
	case payload.KindKeyword:
		w.Keyword, _ = v.Keyword()
	case payload.KindGeo:
		gp, _ := v.GeoPoint()
		w.GeoLat, w.GeoLon = gp.Lat, gp.Lon
	case payload.KindList:
		items, _ := v.List()
		w.List = make([]wireValue, len(items))
		for i, item := range items {
			w.List[i] = toWire(item)
		}
	}
	return w
}

func fromWire(w wireValue) payload.Value {
	switch w.Kind {
	case payload.KindInteger:
		return payload.Integer(w.Integer)
	case payload.KindFloat:
		return payload.Float(w.Float)
	case payload.KindKeyword:
		return payload.Keyword(w.Keyword)
	case payload.KindGeo:
		return payload.Geo(w.GeoLat, w.GeoLon)
	case payload.KindList:
		items := make([]payload.Value, len(w.List))
		for i, item := range w.List {
			items[i] = fromWire(item)
		}
		return payload.List(items...)
	default:
		return payload.Value{}
	}
}

func toWireMap(p payload.Payload) map[string]wireValue {
	if p == nil {
		return nil
	}
	out := make(map[string]wireValue, len(p))
	for k, v := range p {
		out[k] = toWire(v)
	}
	return out
}

func fromWireMap(w map[string]wireValue) payload.Payload {
	if w == nil {
		return nil
	}
	out := make(payload.Payload, len(w))
	for k, v := range w {
		out[k] = fromWire(v)
	}
	return out
}

package collection

import (
	"bytes"
	"encoding/gob"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
)

// wireValue is the gob-encodable mirror of payload.Value, the same
// one-off adapter internal/payloadstorage/codec.go defines for its own
// append log — payload.Value keeps its fields private so only its
// constructors can produce a well-formed tagged union, which means gob
// (exported-fields-only) can't walk it directly. Duplicated here rather
// than imported because payloadstorage's wireValue is unexported to its
// own package on purpose: each append-only log that needs to frame a
// payload.Value owns its own wire mirror instead of sharing one across
// unrelated on-disk formats.
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

// encodeOperation frames op as WAL payload bytes — gob over wireRecord,
// the same framing choice internal/payloadstorage makes for its own
// append log (spec.md §1 leaves wire-format choice open since it only
// specifies "payload_bytes encodes one of the update operations").
func encodeOperation(op Operation) ([]byte, error) {
	rec := wireRecord{
		Kind:     op.Kind,
		IDs:      op.IDs,
		Vectors:  op.Vectors,
		Payloads: make([]map[string]wireValue, len(op.Payloads)),
		Patch:    toWireMap(op.Patch),
		Keys:     op.Keys,
		Key:      op.Key,
	}
	for i, p := range op.Payloads {
		rec.Payloads[i] = toWireMap(p)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeOperation reverses encodeOperation.
func decodeOperation(data []byte) (Operation, error) {
	var rec wireRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return Operation{}, err
	}

	op := Operation{
		Kind:    rec.Kind,
		IDs:     rec.IDs,
		Vectors: rec.Vectors,
		Patch:   fromWireMap(rec.Patch),
		Keys:    rec.Keys,
		Key:     rec.Key,
	}
	if rec.Payloads != nil {
		op.Payloads = make([]payload.Payload, len(rec.Payloads))
		for i, w := range rec.Payloads {
			op.Payloads[i] = fromWireMap(w)
		}
	}
	return op, nil
}

// wireRecord is the gob-encodable mirror of Operation.
type wireRecord struct {
	Kind     OpKind
	IDs      []uint64
	Vectors  [][]float32
	Payloads []map[string]wireValue
	Patch    map[string]wireValue
	Keys     []string
	Key      string
}

package command

import (
	"encoding/json"
	"fmt"
	"time"
)

// valueJSON is the stable wire/storage form of a [Value]. The kind is
// carried explicitly so tagged values survive a round trip through the
// recorder without being mistaken for plain strings.
type valueJSON struct {
	Kind string      `json:"kind"`
	Str  string      `json:"str,omitempty"`
	Num  float64     `json:"num,omitempty"`
	Date string      `json:"date,omitempty"`
	List []valueJSON `json:"list,omitempty"`
}

func kindName(k Kind) string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindTag:
		return "tag"
	case KindList:
		return "list"
	}
	return "string"
}

func kindFromName(name string) (Kind, error) {
	switch name {
	case "string", "":
		return KindString, nil
	case "number":
		return KindNumber, nil
	case "date":
		return KindDate, nil
	case "tag":
		return KindTag, nil
	case "list":
		return KindList, nil
	}
	return KindString, fmt.Errorf("command: unknown value kind %q", name)
}

func toJSON(v Value) valueJSON {
	out := valueJSON{Kind: kindName(v.Kind)}
	switch v.Kind {
	case KindString, KindTag:
		out.Str = v.Str
	case KindNumber:
		out.Num = v.Num
	case KindDate:
		out.Date = v.Date.Format(time.RFC3339)
	case KindList:
		out.List = make([]valueJSON, len(v.List))
		for i, item := range v.List {
			out.List[i] = toJSON(item)
		}
	}
	return out
}

func fromJSON(vj valueJSON) (Value, error) {
	kind, err := kindFromName(vj.Kind)
	if err != nil {
		return Value{}, err
	}
	v := Value{Kind: kind}
	switch kind {
	case KindString, KindTag:
		v.Str = vj.Str
	case KindNumber:
		v.Num = vj.Num
	case KindDate:
		t, err := time.Parse(time.RFC3339, vj.Date)
		if err != nil {
			return Value{}, fmt.Errorf("command: parse date value: %w", err)
		}
		v.Date = t
	case KindList:
		v.List = make([]Value, len(vj.List))
		for i, item := range vj.List {
			v.List[i], err = fromJSON(item)
			if err != nil {
				return Value{}, err
			}
		}
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSON(v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var vj valueJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return fmt.Errorf("command: decode value: %w", err)
	}
	decoded, err := fromJSON(vj)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// EncodeParams serialises p for storage. A nil map encodes as "{}".
func EncodeParams(p Params) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("command: encode params: %w", err)
	}
	return data, nil
}

// DecodeParams is the inverse of [EncodeParams]. Empty input yields an
// empty, non-nil map.
func DecodeParams(data []byte) (Params, error) {
	p := Params{}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("command: decode params: %w", err)
	}
	return p, nil
}

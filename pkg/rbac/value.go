package rbac

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind identifies the type held by a Value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindBool   ValueKind = "bool"
	KindTime   ValueKind = "time"
)

// Value is a typed condition/context value. Values are restricted to a
// small closed set of primitive types and compared by exact equality.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// String constructs a string value. Named StringValue to keep the
// fmt.Stringer method free for display.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue constructs an integer value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue constructs a float value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// TimeValue constructs a timestamp value.
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// Kind returns the kind of the value.
func (v Value) Kind() ValueKind { return v.kind }

// Equal reports exact equality: both kind and payload must match.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	}
	return false
}

// String returns a display form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	}
	return ""
}

// ValueOf converts a decoded JSON scalar into a Value. JSON numbers
// arrive as float64; whole numbers are stored as ints so that condition
// maps built in Go with IntValue match values decoded from requests.
func ValueOf(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case float64:
		if x == float64(int64(x)) {
			return IntValue(int64(x)), nil
		}
		return FloatValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case time.Time:
		return TimeValue(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported context value type %T", raw)
	}
}

type valueJSON struct {
	Kind  ValueKind `json:"kind"`
	Value string    `json:"value"`
}

// MarshalJSON encodes the value with an explicit kind tag.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{Kind: v.kind, Value: v.String()})
}

// UnmarshalJSON decodes either a tagged {kind, value} object or a bare
// JSON scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	var tagged valueJSON
	if err := json.Unmarshal(data, &tagged); err == nil && tagged.Kind != "" {
		return v.fromTagged(tagged)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v *Value) fromTagged(tagged valueJSON) error {
	switch tagged.Kind {
	case KindString:
		*v = StringValue(tagged.Value)
	case KindInt:
		i, err := strconv.ParseInt(tagged.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int value %q: %w", tagged.Value, err)
		}
		*v = IntValue(i)
	case KindFloat:
		f, err := strconv.ParseFloat(tagged.Value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value %q: %w", tagged.Value, err)
		}
		*v = FloatValue(f)
	case KindBool:
		b, err := strconv.ParseBool(tagged.Value)
		if err != nil {
			return fmt.Errorf("invalid bool value %q: %w", tagged.Value, err)
		}
		*v = BoolValue(b)
	case KindTime:
		t, err := time.Parse(time.RFC3339, tagged.Value)
		if err != nil {
			return fmt.Errorf("invalid time value %q: %w", tagged.Value, err)
		}
		*v = TimeValue(t)
	default:
		return fmt.Errorf("unknown value kind %q", tagged.Kind)
	}
	return nil
}

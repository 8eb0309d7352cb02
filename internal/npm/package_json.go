package npm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// PackageJSON holds the package.json fields that affect module resolution.
// Name and Main are only set when the file declares them as strings.
// Exports and Imports hold the raw value tree (string, nil, JSONObject,
// []any, or any other JSON scalar) and are only meaningful when the
// matching Has flag is set.
type PackageJSON struct {
	Name       string
	Main       string
	HasMain    bool
	Type       string
	Exports    any
	HasExports bool
	Imports    any
	HasImports bool
}

// ParsePackageJSON parses the content of a package.json file. A valid
// JSON document that is not an object yields an empty PackageJSON.
func ParsePackageJSON(data []byte) (*PackageJSON, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if !gojson.Valid(data) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return &PackageJSON{}, nil
	}

	var obj JSONObject
	if err := obj.UnmarshalJSON(data); err != nil {
		return nil, err
	}

	p := &PackageJSON{}
	if v, ok := obj.Get("name"); ok {
		p.Name, _ = v.(string)
	}
	if v, ok := obj.Get("main"); ok {
		p.Main, p.HasMain = v.(string)
	}
	if v, ok := obj.Get("type"); ok {
		if s, _ := v.(string); s == "commonjs" || s == "module" {
			p.Type = s
		}
	}
	p.Exports, p.HasExports = obj.Get("exports")
	p.Imports, p.HasImports = obj.Get("imports")
	return p, nil
}

// JSONObject represents a readonly JSON object with ordered keys
type JSONObject struct {
	keys   []string
	values map[string]any
}

// NewJSONObject creates a new JSONObject with the given keys and values
func NewJSONObject(keys []string, values map[string]any) JSONObject {
	return JSONObject{
		keys:   keys,
		values: values,
	}
}

// Len returns the length of the JSON object
func (obj *JSONObject) Len() int {
	return len(obj.keys)
}

// Keys returns the keys of the JSON object in declaration order
func (obj *JSONObject) Keys() []string {
	return obj.keys
}

// Get returns the value of the key in the JSON object
func (obj *JSONObject) Get(key string) (any, bool) {
	v, ok := obj.values[key]
	return v, ok
}

// String returns the object as compact JSON, keeping the key order.
func (obj JSONObject) String() string {
	var buf bytes.Buffer
	writeJSON(&buf, obj)
	return buf.String()
}

// MarshalJSON implements the json.Marshaler interface
func (obj JSONObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeJSON(&buf, obj)
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) {
	switch v := v.(type) {
	case JSONObject:
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, _ := gojson.Marshal(key)
			buf.Write(b)
			buf.WriteByte(':')
			writeJSON(buf, v.values[key])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, item)
		}
		buf.WriteByte(']')
	case json.Number:
		buf.WriteString(v.String())
	default:
		b, err := gojson.Marshal(v)
		if err != nil {
			buf.WriteString("null")
			return
		}
		buf.Write(b)
	}
}

// IsArrayIndex reports whether key is a canonical array index such as "0"
// or "42".
func IsArrayIndex(key string) bool {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	return err == nil && n < 1<<32-1
}

// UnmarshalJSON implements type json.Unmarshaler interface
func (obj *JSONObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	// don't convert number to float64
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expect JSON object open with '{'")
	}

	err = obj.parse(dec)
	if err != nil {
		return err
	}

	t, err = dec.Token()
	if err != io.EOF {
		return fmt.Errorf("expect end of JSON object but got more token: %T: %v or err: %v", t, t, err)
	}

	return nil
}

func (obj *JSONObject) parse(dec *json.Decoder) (err error) {
	var t json.Token
	for dec.More() {
		t, err = dec.Token()
		if err != nil {
			return err
		}

		key, ok := t.(string)
		if !ok {
			return fmt.Errorf("expecting JSON key should be always a string: %T: %v", t, t)
		}

		t, err = dec.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		} else if err != nil {
			return err
		}

		var value any
		value, err = handleDelim(t, dec)
		if err != nil {
			return err
		}

		if obj.values == nil {
			obj.values = make(map[string]any)
		}
		// a duplicated key keeps its first position and takes the last value
		if _, dup := obj.values[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = value
	}

	t, err = dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '}' {
		return fmt.Errorf("expect JSON object close with '}'")
	}

	return nil
}

func parseArray(dec *json.Decoder) (arr []any, err error) {
	var t json.Token
	arr = make([]any, 0)
	for dec.More() {
		t, err = dec.Token()
		if err != nil {
			return
		}

		var value any
		value, err = handleDelim(t, dec)
		if err != nil {
			return
		}
		arr = append(arr, value)
	}
	t, err = dec.Token()
	if err != nil {
		return
	}
	if delim, ok := t.(json.Delim); !ok || delim != ']' {
		err = fmt.Errorf("expect JSON array close with ']'")
		return
	}

	return
}

func handleDelim(t json.Token, dec *json.Decoder) (res any, err error) {
	if delim, ok := t.(json.Delim); ok {
		switch delim {
		case '{':
			obj := JSONObject{
				values: make(map[string]any),
			}
			err = obj.parse(dec)
			if err != nil {
				return
			}
			return obj, nil
		case '[':
			var value []any
			value, err = parseArray(dec)
			if err != nil {
				return
			}
			return value, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter: %q", delim)
		}
	}
	return t, nil
}

// SyntaxMessage returns a short description of a JSON parse error.
func SyntaxMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "json: "); i >= 0 {
		msg = msg[i+6:]
	}
	return msg
}

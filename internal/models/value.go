// Defines the tagged value union stored in schema-less records.

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindNull is the zero Value.
	KindNull Kind = iota
	// KindBool holds a JSON boolean.
	KindBool
	// KindNumber holds a JSON number, kept in its original textual form.
	KindNumber
	// KindString holds a JSON string. Stored file references are strings.
	KindString
	// KindArray holds a JSON array.
	KindArray
	// KindObject holds a JSON object with its key order preserved.
	KindObject
	// KindUpload holds an inline attachment: an object carrying both
	// "file_data" and "file_name" strings.
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUpload:
		return "upload"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Object is an insertion-ordered JSON object. The zero value is empty and
// ready to use.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Value]()}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Get returns the value of key and whether it is present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return Value{}, false
	}
	return o.m.Get(key)
}

// Set sets key. A new key goes last; an existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if o.m == nil {
		o.m = orderedmap.New[string, Value]()
	}
	o.m.Set(key, v)
}

// Delete removes key and returns its former value.
func (o *Object) Delete(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return Value{}, false
	}
	return o.m.Delete(key)
}

// All iterates over the keys in insertion order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil || o.m == nil {
			return
		}
		for p := o.m.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil || o.m == nil {
		return []byte("{}"), nil
	}
	return o.m.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	d, err := decodeOrdered(data)
	if err != nil {
		return err
	}
	o.m = d.m
	return nil
}

// FileUpload is an attachment supplied inline on an entry field.
type FileUpload struct {
	// FileData is base64, optionally prefixed with "data:<mime>;base64,".
	FileData string `json:"file_data" jsonschema:"description=Base64 payload, optionally prefixed with data:<mime>;base64,"`
	// FileName is the client's original file name.
	FileName string `json:"file_name" jsonschema:"description=Original file name"`
}

// Value is one JSON value in a schema-less record.
//
// Values are immutable once built: copies share the underlying array and
// object storage.
type Value struct {
	kind   Kind
	b      bool
	n      json.Number
	s      string
	arr    []Value
	obj    *Object
	upload *FileUpload
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a numeric Value.
func Int(i int) Value { return Value{kind: KindNumber, n: json.Number(strconv.Itoa(i))} }

// Number returns a numeric Value from its JSON text.
func Number(n json.Number) Value { return Value{kind: KindNumber, n: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array Value.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// ObjectValue returns an object Value, classifying it as an upload when it
// has the attachment shape.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	if u, ok := uploadFrom(o); ok {
		return Value{kind: KindUpload, obj: o, upload: u}
	}
	return Value{kind: KindObject, obj: o}
}

// Upload returns an upload Value.
func Upload(u FileUpload) Value {
	o := NewObject()
	o.Set("file_data", String(u.FileData))
	o.Set("file_name", String(u.FileName))
	return Value{kind: KindUpload, obj: o, upload: &u}
}

// Kind returns the variant held.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean and whether v is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and whether v is a number.
func (v Value) AsNumber() (json.Number, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string and whether v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the items and whether v is an array.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object and whether v is an object. Uploads are
// objects too.
func (v Value) AsObject() (*Object, bool) {
	return v.obj, v.kind == KindObject || v.kind == KindUpload
}

// AsUpload returns the attachment and whether v is an upload.
func (v Value) AsUpload() (FileUpload, bool) {
	if v.kind != KindUpload {
		return FileUpload{}, false
	}
	return *v.upload, true
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindNumber:
		if v.n == "" {
			return []byte("0"), nil
		}
		return []byte(v.n), nil
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject, KindUpload:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

var errEmptyValue = errors.New("empty JSON value")

// UnmarshalJSON implements json.Unmarshaler. Numbers keep their textual
// form and objects keep their key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errEmptyValue
	}
	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("invalid JSON literal %q", data)
		}
		*v = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case '[':
		items := []Value{}
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = Array(items...)
	case '{':
		o, err := decodeOrdered(data)
		if err != nil {
			return err
		}
		*v = ObjectValue(o)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
	}
	return nil
}

// decodeOrdered decodes a JSON object keeping its key order. A repeated key
// keeps its first position and its last value.
func decodeOrdered(data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}
	o := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid object key %v", tok)
		}
		var item Value
		if err := dec.Decode(&item); err != nil {
			return nil, err
		}
		o.Set(key, item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

// uploadFrom recognizes the inline attachment shape.
func uploadFrom(o *Object) (*FileUpload, bool) {
	data, ok := o.Get("file_data")
	if !ok || data.kind != KindString {
		return nil, false
	}
	name, ok := o.Get("file_name")
	if !ok || name.kind != KindString {
		return nil, false
	}
	return &FileUpload{FileData: data.s, FileName: name.s}, true
}

// CloneObject returns a shallow copy of o preserving key order.
func CloneObject(o *Object) *Object {
	c := NewObject()
	if o == nil {
		return c
	}
	for k, v := range o.All() {
		c.Set(k, v)
	}
	return c
}

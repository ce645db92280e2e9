// Package models defines the records persisted by the document store and
// returned by the API.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// VirtualDatabase is a user-defined schema container.
//
// Fields holds every user-supplied key except "id", in submission order.
type VirtualDatabase struct {
	ID     int
	Fields *Object
}

// Clone returns a copy sharing the immutable field values.
func (d *VirtualDatabase) Clone() *VirtualDatabase {
	return &VirtualDatabase{ID: d.ID, Fields: CloneObject(d.Fields)}
}

// MarshalJSON emits the user fields followed by "id".
func (d *VirtualDatabase) MarshalJSON() ([]byte, error) {
	out := CloneObject(d.Fields)
	out.Set("id", Int(d.ID))
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *VirtualDatabase) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("virtual database: %w", err)
	}
	id, err := takeID(o)
	if err != nil {
		return fmt.Errorf("virtual database: %w", err)
	}
	d.ID = id
	d.Fields = o
	return nil
}

// Entry is one record of a VirtualDatabase.
//
// Values maps field names to values; attachments are file reference
// strings once stored. Extra keeps any other top-level keys the client sent.
type Entry struct {
	ID        int
	CreatedAt time.Time
	Values    *Object
	Extra     *Object
}

// Clone returns a copy sharing the immutable field values.
func (e *Entry) Clone() *Entry {
	return &Entry{ID: e.ID, CreatedAt: e.CreatedAt, Values: CloneObject(e.Values), Extra: CloneObject(e.Extra)}
}

// MarshalJSON emits extra keys, then "values", "id" and "created_at".
func (e *Entry) MarshalJSON() ([]byte, error) {
	out := CloneObject(e.Extra)
	values := e.Values
	if values == nil {
		values = NewObject()
	}
	out.Set("values", Value{kind: KindObject, obj: values})
	out.Set("id", Int(e.ID))
	out.Set("created_at", String(e.CreatedAt.Format(time.RFC3339Nano)))
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	id, err := takeID(o)
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	e.ID = id
	if v, ok := o.Delete("created_at"); ok {
		s, ok := v.AsString()
		if !ok {
			return fmt.Errorf("entry %d: created_at must be a string", id)
		}
		if e.CreatedAt, err = ParseTimestamp(s); err != nil {
			return fmt.Errorf("entry %d: %w", id, err)
		}
	}
	e.Values = NewObject()
	if v, ok := o.Delete("values"); ok {
		values, ok := v.AsObject()
		if !ok {
			return fmt.Errorf("entry %d: values must be an object", id)
		}
		e.Values = values
	}
	e.Extra = o
	return nil
}

// legacyTimestamp is the layout of timestamps without a zone, as written by
// older deployments.
const legacyTimestamp = "2006-01-02T15:04:05.999999999"

// ParseTimestamp parses RFC 3339 timestamps, falling back to zone-less ISO
// 8601 interpreted as local time.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyTimestamp, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// DatabaseList is the persisted, creation-ordered list of databases.
type DatabaseList []*VirtualDatabase

// Clone returns a copy of the list whose appends never alias the original.
func (l DatabaseList) Clone() DatabaseList {
	return slices.Clip(slices.Clone(l))
}

// Find returns the database with the given id.
func (l DatabaseList) Find(id int) (*VirtualDatabase, bool) {
	for _, d := range l {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Validate rejects missing records and duplicate ids.
func (l DatabaseList) Validate() error {
	seen := make(map[int]struct{}, len(l))
	for i, d := range l {
		if d == nil {
			return fmt.Errorf("database %d: null record", i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate database id %d", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// NextID returns one more than the largest id in use.
func (l DatabaseList) NextID() int {
	next := 1
	for _, d := range l {
		next = max(next, d.ID+1)
	}
	return next
}

// EntryIndex maps a database id, as decimal text, to its entries in creation
// order.
type EntryIndex map[string][]*Entry

// Clone returns a copy of the index whose appends never alias the original.
func (x EntryIndex) Clone() EntryIndex {
	c := make(EntryIndex, len(x))
	for k, v := range x {
		c[k] = slices.Clip(v)
	}
	return c
}

// Key returns the index key for a database id.
func (x EntryIndex) Key(databaseID int) string {
	return strconv.Itoa(databaseID)
}

// Validate rejects malformed keys, missing records and duplicate ids.
func (x EntryIndex) Validate() error {
	for k, entries := range x {
		if id, err := strconv.Atoi(k); err != nil || id <= 0 {
			return fmt.Errorf("invalid database key %q", k)
		}
		seen := make(map[int]struct{}, len(entries))
		for i, e := range entries {
			if e == nil {
				return fmt.Errorf("database %s entry %d: null record", k, i)
			}
			if _, dup := seen[e.ID]; dup {
				return fmt.Errorf("database %s: duplicate entry id %d", k, e.ID)
			}
			seen[e.ID] = struct{}{}
		}
	}
	return nil
}

// NextID returns one more than the largest entry id used by the database.
func (x EntryIndex) NextID(databaseID int) int {
	next := 1
	for _, e := range x[x.Key(databaseID)] {
		next = max(next, e.ID+1)
	}
	return next
}

var (
	errNotObject = errors.New("expected a JSON object")
	errBadID     = errors.New("id must be a positive integer")
)

func decodeObject(data []byte) (*Object, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	o, ok := v.AsObject()
	if !ok {
		return nil, errNotObject
	}
	return o, nil
}

// takeID removes "id" from o and returns it.
func takeID(o *Object) (int, error) {
	v, ok := o.Delete("id")
	if !ok {
		return 0, errBadID
	}
	n, ok := v.AsNumber()
	if !ok {
		return 0, errBadID
	}
	id, err := strconv.Atoi(n.String())
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

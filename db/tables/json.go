package tables

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MapStructure is a map-like structure that may be stored in a persistent store
type MapStructure map[string]interface{}

// Value returns the map structures value
func (m MapStructure) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return driver.Value(""), err
	}
	return driver.Value(string(data)), nil
}

// Scan allows to scan a map structure
func (m *MapStructure) Scan(src interface{}) error {
	source, err := jsonSource(src, "{}")
	if err != nil {
		return err
	}
	return json.Unmarshal(source, m)
}

// StringList is an ordered list of strings persisted as a json array
type StringList []string

// Value returns the json encoded list
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return driver.Value(""), err
	}
	return driver.Value(string(data)), nil
}

// Scan decodes a json array column
func (l *StringList) Scan(src interface{}) error {
	source, err := jsonSource(src, "[]")
	if err != nil {
		return err
	}
	return json.Unmarshal(source, (*[]string)(l))
}

func jsonSource(src interface{}, empty string) ([]byte, error) {
	var source []byte
	switch v := src.(type) {
	case string:
		source = []byte(v)
	case []byte:
		source = v
	default:
		if v != nil {
			return nil, fmt.Errorf("error scanning json value: %+v", src)
		}
	}
	if len(source) == 0 {
		source = []byte(empty)
	}
	return source, nil
}

package report

import (
	"bytes"
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
)

// DeterministicEncode produces byte-identical JSON for equal values:
// object keys are sorted and nil or empty collections are omitted.
func DeterministicEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(normalizeValue(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DeterministicEncodeIndented is DeterministicEncode with indentation.
func DeterministicEncodeIndented(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", indent)
	if err := encoder.Encode(normalizeValue(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// normalizeValue converts v into maps, slices and scalars that encoding/json
// renders in a stable order.
func normalizeValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	val := reflect.ValueOf(v)

	// Values with their own encoding (time.Time) are kept as they are.
	if val.Type().Implements(jsonMarshalerType) || val.Type().Implements(textMarshalerType) {
		if val.Kind() == reflect.Ptr && val.IsNil() {
			return nil
		}
		return v
	}

	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
		if val.Type().Implements(jsonMarshalerType) || val.Type().Implements(textMarshalerType) {
			return val.Interface()
		}
	}

	switch val.Kind() {
	case reflect.Map:
		return normalizeMap(val)
	case reflect.Slice, reflect.Array:
		return normalizeSlice(val)
	case reflect.Struct:
		return normalizeStruct(val)
	case reflect.Interface:
		if val.IsNil() {
			return nil
		}
		return normalizeValue(val.Interface())
	default:
		return val.Interface()
	}
}

func normalizeMap(val reflect.Value) map[string]interface{} {
	if val.IsNil() || val.Len() == 0 {
		return nil
	}
	result := make(map[string]interface{}, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		if value := normalizeValue(iter.Value().Interface()); value != nil {
			result[iter.Key().String()] = value
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func normalizeSlice(val reflect.Value) interface{} {
	if val.Kind() == reflect.Slice && val.IsNil() {
		return nil
	}
	if val.Len() == 0 {
		return nil
	}
	result := make([]interface{}, val.Len())
	for i := 0; i < val.Len(); i++ {
		result[i] = normalizeValue(val.Index(i).Interface())
	}
	return result
}

func normalizeStruct(val reflect.Value) map[string]interface{} {
	result := make(map[string]interface{})
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, omitEmpty := parseJSONTag(tag)
		if name == "" {
			name = field.Name
		}

		normalized := normalizeValue(val.Field(i).Interface())
		if omitEmpty && isZeroValue(normalized) {
			continue
		}
		if normalized != nil {
			result[name] = normalized
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func parseJSONTag(tag string) (name string, omitEmpty bool) {
	if tag == "" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty
}

func isZeroValue(v interface{}) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case bool:
		return !val
	case int, int8, int16, int32, int64:
		return reflect.ValueOf(val).Int() == 0
	case uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(val).Uint() == 0
	case float32, float64:
		return reflect.ValueOf(val).Float() == 0
	case string:
		return val == ""
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.String {
			return rv.Len() == 0
		}
		if z, ok := v.(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
		return false
	}
}

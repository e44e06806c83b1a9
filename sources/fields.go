package sources

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Lookup resolves a field of a decoded JSON document. A key containing dots
// is first tried verbatim, then walked through nested objects, so both
// {"customer.daytime_phone": ...} and {"customer": {"daytime_phone": ...}}
// resolve "customer.daytime_phone". Null values and objects are reported as
// missing.
func Lookup(doc map[string]interface{}, path string) (string, bool) {
	if v, ok := doc[path]; ok {
		return scalar(v)
	}

	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, part := range parts {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return "", false
		}
		if cur, ok = obj[part]; !ok {
			return "", false
		}
	}
	return scalar(cur)
}

// Project loads the given fields of doc into a flat map, dropping missing ones.
func Project(doc map[string]interface{}, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := Lookup(doc, f); ok {
			out[f] = v
		}
	}
	return out
}

func scalar(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case map[string]interface{}, []interface{}:
		return "", false
	default:
		return fmt.Sprint(x), true
	}
}

package traits

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// DefaultStrategy emits one attribute per primitive field: the key with
// whitespace runs replaced by "_", mapped to the value's string form.
// Both are lower-cased. Maps, slices and nil values are skipped.
//
// Keys are visited in sorted order, so when two keys normalize to the same
// attribute the one sorting last wins.
func DefaultStrategy(rec Record) map[string]string {
	out := make(map[string]string, len(rec))
	for _, k := range slices.Sorted(maps.Keys(rec)) {
		s, ok := primitive(rec[k])
		if !ok {
			continue
		}
		key := strings.ToLower(whitespace.ReplaceAllString(k, "_"))
		out[key] = strings.ToLower(s)
	}
	return out
}

// Keyword scans applied to the display name of Frens assets, in order.
var frensKeywords = []struct {
	phrase    string
	attribute string
}{
	{"red hat", "hat_red"},
	{"blue hat", "hat_blue"},
	{"green hat", "hat_green"},
	{"blue eyes", "eyes_blue"},
	{"green eyes", "eyes_green"},
	{"brown eyes", "eyes_brown"},
}

// FrensStrategy keeps the lower-cased name and derives hat and eye colors
// from keywords in it.
func FrensStrategy(rec Record) map[string]string {
	out := make(map[string]string)
	name := ""
	if truthy(rec["name"]) {
		name = strings.ToLower(stringOf(rec["name"]))
		out["name"] = name
	}
	for _, kw := range frensKeywords {
		if strings.Contains(name, kw.phrase) {
			out[kw.attribute] = "true"
		}
	}
	return out
}

// CapsuleStrategy reads explicit rarity, color and shape fields.
func CapsuleStrategy(rec Record) map[string]string {
	out := make(map[string]string)
	if truthy(rec["rarity"]) {
		out["rarity"] = strings.ToLower(stringOf(rec["rarity"]))
	}
	if truthy(rec["color"]) {
		out["color_"+strings.ToLower(stringOf(rec["color"]))] = "true"
	}
	if truthy(rec["shape"]) {
		out["shape_"+strings.ToLower(stringOf(rec["shape"]))] = "true"
	}
	return out
}

// primitive renders strings, booleans and numbers; ok is false for
// anything else.
func primitive(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return formatNumberString(t.String()), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	default:
		return "", false
	}
}

// formatNumberString canonicalizes a decimal literal ("2.50" -> "2.5").
func formatNumberString(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// stringOf renders any value the way the keyword strategies expect.
func stringOf(v any) string {
	if s, ok := primitive(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

// truthy treats empty strings, zero numbers, false and nil as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	}
	s, ok := primitive(v)
	if !ok {
		return true
	}
	switch s {
	case "", "false", "0", "-0", "NaN":
		return false
	}
	return true
}

package basisregisters

import "github.com/tidwall/gjson"

// FirstString evaluates candidate gjson paths in order and returns the first
// non-empty value, coerced to a string. The registry payloads carry the same
// datum under several legacy and alternate key names; keeping the alternation
// as an explicit ordered path list keeps it auditable.
func FirstString(r gjson.Result, paths ...string) string {
	for _, path := range paths {
		v := r.Get(path)
		if v.Type == gjson.Null {
			continue
		}
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

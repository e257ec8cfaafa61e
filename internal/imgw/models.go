package imgw

// Record is one raw item from an IMGW list endpoint. Values arrive as JSON
// strings (the API stringifies numbers), occasionally null; field-level
// parsing is deferred to the consumer side so one bad value never fails a
// fetch.
type Record map[string]any

// Str returns the record field as a string, or "" when absent or not a string.
func (r Record) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Strings returns the record field as a string slice, tolerating []any payloads.
func (r Record) Strings(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Records returns the record field as a nested record slice (e.g. the
// "obszary" list on hydrological warnings).
func (r Record) Records(key string) []Record {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// SearchResult is one candidate location from the proxy geocoder.
type SearchResult struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Teryt      string  `json:"teryt"`
	Province   string  `json:"province"`
	District   string  `json:"district"`
	Commune    string  `json:"commune"`
	Rank       float64 `json:"rank"`
	Identifier string  `json:"identifier"`
	Synoptic   bool    `json:"synoptic"`
}

// DisplayName builds a human-readable label, including the commune when it
// differs from the place name.
func (s SearchResult) DisplayName() string {
	if s.Identifier != "" {
		return s.Identifier
	}
	name := s.Name
	if s.Commune != "" && s.Commune != s.Name {
		name += ", gm. " + s.Commune
	}
	if s.Province != "" {
		name += ", " + s.Province
	}
	return name
}

package runtime

import "encoding/json"

// ContentKind discriminates the shapes a tool result can take on the wire.
type ContentKind int

const (
	ContentAbsent ContentKind = iota
	ContentText
	ContentStructured
)

// ResultContent is the tagged union of tool-result payloads. The runtime
// sometimes sends a plain string, sometimes a structured object, sometimes
// nothing; callers switch on Kind instead of type-sniffing.
type ResultContent struct {
	Kind   ContentKind
	Text   string
	Fields map[string]any
}

// TextContent wraps a string payload.
func TextContent(s string) ResultContent {
	return ResultContent{Kind: ContentText, Text: s}
}

// StructuredContent wraps an object payload.
func StructuredContent(fields map[string]any) ResultContent {
	return ResultContent{Kind: ContentStructured, Fields: fields}
}

// AbsentContent is the zero payload.
func AbsentContent() ResultContent {
	return ResultContent{Kind: ContentAbsent}
}

func (c *ResultContent) UnmarshalJSON(data []byte) error {
	trimmed := string(data)
	if trimmed == "" || trimmed == "null" {
		*c = AbsentContent()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = TextContent(s)
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err == nil {
		*c = StructuredContent(fields)
		return nil
	}

	// Arrays and scalars degrade to their raw JSON text rather than erroring.
	*c = TextContent(trimmed)
	return nil
}

func (c ResultContent) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText:
		return json.Marshal(c.Text)
	case ContentStructured:
		return json.Marshal(c.Fields)
	default:
		return []byte("null"), nil
	}
}

// StringField returns a string field of a structured payload, or "".
func (c ResultContent) StringField(key string) string {
	if c.Kind != ContentStructured {
		return ""
	}
	if v, ok := c.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Int64Field returns a numeric field as int64, tolerating the float64 that
// encoding/json produces for all JSON numbers.
func (c ResultContent) Int64Field(key string) (int64, bool) {
	if c.Kind != ContentStructured {
		return 0, false
	}
	switch v := c.Fields[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
	}
	return 0, false
}

// FloatField returns a numeric field as float64.
func (c ResultContent) FloatField(key string) (float64, bool) {
	if c.Kind != ContentStructured {
		return 0, false
	}
	switch v := c.Fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// MapField returns an object field of a structured payload, or nil.
func (c ResultContent) MapField(key string) map[string]any {
	if c.Kind != ContentStructured {
		return nil
	}
	if v, ok := c.Fields[key].(map[string]any); ok {
		return v
	}
	return nil
}

package convert

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// prettyJSON renders an ordered value tree with four-space indentation.
func prettyJSON(v any) (string, error) {
	var compact bytes.Buffer
	if err := writeOrdered(&compact, v); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return "", err
	}
	return out.String(), nil
}

func writeOrdered(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case *sequencedmap.Map[string, any]:
		buf.WriteByte('{')
		i := 0
		for k, val := range spec.Entries(t) {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeOrdered(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeOrdered(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, val := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeOrdered(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case json.Number:
		buf.WriteString(t.String())
	default:
		return writeScalar(buf, v)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

package jsonbuild

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	gyaml "github.com/goccy/go-yaml"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"
)

// checkSerializable rejects values encoding/json cannot represent
// (channels, funcs, NaN, cycles). Nothing is mutated when this fails.
func checkSerializable(v any) error {
	if _, err := json.Marshal(v); err != nil {
		return &NotSerializableError{Cause: err}
	}
	return nil
}

// DecodeDocument decodes a JSON document into a builder-compatible tree.
// Decoding goes through the YAML machinery (JSON is a subset of YAML) so
// that integers stay integral instead of collapsing to float64.
func DecodeDocument(data []byte) (any, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("jsonbuild: invalid JSON document")
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("jsonbuild: decode: %w", err)
	}
	return v, nil
}

// EncodeJSON renders a tree as compact JSON. gyaml.MapSlice nodes keep
// their insertion order; plain maps are emitted with sorted keys, so the
// output is deterministic either way.
func EncodeJSON(root any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSONValue(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJSONIndent is EncodeJSON with pretty-printed output.
func EncodeJSONIndent(root any) ([]byte, error) {
	b, err := EncodeJSON(root)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(b), nil
}

func encodeJSONValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case gyaml.MapSlice:
		buf.WriteByte('{')
		for i, it := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSONKey(buf, it.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeJSONValue(buf, it.Value); err != nil {
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
			if err := encodeJSONKey(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeJSONValue(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSONValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return &NotSerializableError{Cause: err}
		}
		buf.Write(b)
	}
	return nil
}

func encodeJSONKey(buf *bytes.Buffer, k any) error {
	s, ok := k.(string)
	if !ok {
		s = fmt.Sprint(k)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// EncodeYAML renders a tree as YAML, for dropping built documents into
// config files. MapSlice ordering is preserved; plain maps are sorted.
func EncodeYAML(root any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(treeToYAMLNode(root)); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("jsonbuild: yaml encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("jsonbuild: yaml encode: %w", err)
	}
	return buf.Bytes(), nil
}

// treeToYAMLNode converts a tree into a yaml.v3 node, preserving ordering
// for gyaml.MapSlice (recursively) and sorting plain map keys.
func treeToYAMLNode(v any) *yaml.Node {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case bool:
		if t {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(t)}
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(t, 10)}
	case uint64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(t, 10)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(t, 'g', -1, 64)}
	case json.Number:
		if strings.ContainsAny(string(t), ".eE") {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: string(t)}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: string(t)}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t}
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			seq.Content = append(seq.Content, treeToYAMLNode(e))
		}
		return seq
	case gyaml.MapSlice:
		mp := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, it := range t {
			mp.Content = append(mp.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(it.Key)},
				treeToYAMLNode(it.Value),
			)
		}
		return mp
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		mp := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			mp.Content = append(mp.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				treeToYAMLNode(t[k]),
			)
		}
		return mp
	default:
		// Best-effort scalar string
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(t)}
	}
}

// Clone deep-copies a tree. Containers (maps, slices, MapSlices) are copied
// structurally; scalars are shared.
func Clone(root any) any {
	switch t := root.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case gyaml.MapSlice:
		out := make(gyaml.MapSlice, 0, len(t))
		for _, it := range t {
			out = append(out, gyaml.MapItem{Key: it.Key, Value: Clone(it.Value)})
		}
		return out
	default:
		return t
	}
}

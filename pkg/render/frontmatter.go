package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatter is an ordered YAML mapping. Building it from nodes keeps key
// order and quoting stable across runs.
type frontmatter struct {
	node yaml.Node
}

func newFrontmatter() *frontmatter {
	return &frontmatter{node: yaml.Node{Kind: yaml.MappingNode}}
}

func (f *frontmatter) plain(key, value string) *frontmatter {
	f.node.Content = append(f.node.Content, scalar(key, 0), scalar(value, 0))
	return f
}

func (f *frontmatter) quoted(key, value string) *frontmatter {
	f.node.Content = append(f.node.Content, scalar(key, 0), scalar(value, yaml.DoubleQuotedStyle))
	return f
}

// list adds a block sequence. Quoted items keep user supplied tags as strings
// whatever they look like.
func (f *frontmatter) list(key string, items []string, style yaml.Style) *frontmatter {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, item := range items {
		seq.Content = append(seq.Content, scalar(item, style))
	}
	f.node.Content = append(f.node.Content, scalar(key, 0), seq)
	return f
}

func scalar(value string, style yaml.Style) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Style: style, Value: value}
}

// encode writes the block delimited by "---" lines.
func (f *frontmatter) encode(buf *bytes.Buffer) error {
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&f.node); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	buf.WriteString("---\n")
	return nil
}

// ParseFrontmatter splits a note into its front matter and body.
// Notes without a leading "---" line have no metadata.
func ParseFrontmatter(data []byte) (map[string]any, string, error) {
	meta := map[string]any{}
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return meta, string(data), nil
	}

	rest := data[3:]
	parts := bytes.SplitN(rest, []byte("\n---"), 2)
	if len(parts) == 1 {
		return nil, "", errors.New("frontmatter started but no closing delimiter found")
	}

	if err := yaml.Unmarshal(parts[0], &meta); err != nil {
		return nil, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}

	// Drop the rest of the closing delimiter line.
	body := strings.TrimPrefix(string(parts[1]), "\r")
	body = strings.TrimPrefix(body, "\n")
	return meta, body, nil
}

package markdown

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds the YAML header fields the server cares about.
type Frontmatter struct {
	Title string     `yaml:"title" json:"title,omitempty"`
	Tags  StringList `yaml:"tags" json:"tags,omitempty"`
}

// StringList accepts either a YAML sequence or a single scalar.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value != "" {
			*l = StringList{value.Value}
		}
		return nil
	default:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	}
}

// splitFrontmatter returns the parsed header and the offset where the
// markdown body begins. A header that is not valid YAML is still skipped
// so that its lines never show up as sections.
func splitFrontmatter(source []byte) (Frontmatter, int) {
	var fm Frontmatter

	first, rest, ok := cutLine(source, 0)
	if !ok || string(bytes.TrimRight(first, "\r")) != "---" {
		return fm, 0
	}

	offset := rest
	for offset <= len(source) {
		line, next, ok := cutLine(source, offset)
		if !ok {
			break
		}
		trimmed := string(bytes.TrimRight(line, " \t\r"))
		if trimmed == "---" || trimmed == "..." {
			header := source[rest:offset]
			if err := yaml.Unmarshal(header, &fm); err != nil {
				fm = Frontmatter{}
			}
			return fm, next
		}
		offset = next
	}

	// Unterminated: treat the whole thing as body.
	return Frontmatter{}, 0
}

// cutLine returns the line starting at offset (without "\n") and the
// offset of the following line.
func cutLine(source []byte, offset int) ([]byte, int, bool) {
	if offset >= len(source) {
		return nil, offset, false
	}
	i := bytes.IndexByte(source[offset:], '\n')
	if i < 0 {
		return source[offset:], len(source), true
	}
	return source[offset : offset+i], offset + i + 1, true
}

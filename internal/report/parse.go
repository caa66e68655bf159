package report

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a parsed digest.
type Document struct {
	Meta        Frontmatter
	Frontmatter map[string]any
	Body        string
}

// ParseFile reads a markdown file with optional YAML frontmatter.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse splits frontmatter, delimited by two lines containing only "---" at
// the top of the input, from the body.
func Parse(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, err
	}
	hasFM := string(peek) == "---"

	var fmBuf, bodyBuf strings.Builder
	if hasFM {
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, err
		}
		for {
			l, err := br.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return Document{}, err
			}
			if strings.TrimSpace(l) == "---" {
				break
			}
			fmBuf.WriteString(l)
			if errors.Is(err, io.EOF) {
				break
			}
		}
	}
	if _, err := io.Copy(&bodyBuf, br); err != nil {
		return Document{}, err
	}

	d := Document{Frontmatter: map[string]any{}, Body: strings.TrimLeft(bodyBuf.String(), "\n")}
	if !hasFM {
		d.Body = bodyBuf.String()
		return d, nil
	}
	raw := []byte(fmBuf.String())
	if err := yaml.Unmarshal(raw, &d.Frontmatter); err != nil {
		return Document{}, err
	}
	if d.Frontmatter == nil {
		d.Frontmatter = map[string]any{}
	}
	if err := yaml.Unmarshal(raw, &d.Meta); err != nil {
		return Document{}, err
	}
	return d, nil
}

// Package report renders ranked trends into a markdown digest with YAML
// frontmatter and reads digests back.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"trend-radar/internal/model"
)

// Frontmatter is the YAML header of a digest.
type Frontmatter struct {
	Title        string   `yaml:"title"`
	Slug         string   `yaml:"slug"`
	Datetime     string   `yaml:"datetime"`
	Source       string   `yaml:"source"`
	Summary      string   `yaml:"summary,omitempty"`
	Technologies []string `yaml:"technologies"`
}

// Item is one rendered trend.
type Item struct {
	Rank        int
	Technology  string
	Description string
	Category    string
	Popularity  float64
	GrowthRate  float64
	Sources     string
	Adopters    string
	WhyUseIt    []string
	URLs        []string
}

// Data feeds the digest template.
type Data struct {
	Meta       Frontmatter
	Preface    string
	Postscript string
	Items      []Item
}

// Options controls Build.
type Options struct {
	Title      string // may contain {.CurrentDate}
	Frequency  string // daily or weekly, used for the slug
	Preface    string
	Postscript string
	TopN       int
}

//go:embed report.tmpl
var reportTpl string

var compiled = template.Must(template.New("report").Parse(reportTpl))

// Build turns ranked trends into template data.
func Build(trends []model.RichTrend, source string, now time.Time, opts Options) Data {
	if opts.TopN > 0 && len(trends) > opts.TopN {
		trends = trends[:opts.TopN]
	}
	title := strings.TrimSpace(ExpandVars(opts.Title, now))
	if title == "" {
		title = "Technology trends " + now.UTC().Format("2006-01-02")
	}
	d := Data{
		Meta: Frontmatter{
			Title:        title,
			Slug:         Slug(opts.Frequency, now),
			Datetime:     now.UTC().Format("2006-01-02 15:04"),
			Source:       source,
			Technologies: model.Technologies(trends),
		},
		Preface:    ExpandVars(opts.Preface, now),
		Postscript: ExpandVars(opts.Postscript, now),
		Items:      make([]Item, 0, len(trends)),
	}
	for i, t := range trends {
		adopters := make([]string, 0, len(t.CompanyAdoptions))
		for _, a := range t.CompanyAdoptions {
			if a.Name != "" {
				adopters = append(adopters, a.Name)
			}
		}
		d.Items = append(d.Items, Item{
			Rank:        i + 1,
			Technology:  t.Technology,
			Description: t.Description,
			Category:    t.Category,
			Popularity:  t.Popularity,
			GrowthRate:  t.GrowthRate,
			Sources:     strings.Join(uniq(t.Sources), ", "),
			Adopters:    strings.Join(adopters, ", "),
			WhyUseIt:    t.WhyUseIt,
			URLs:        t.URLs,
		})
	}
	if len(trends) > 0 {
		top := d.Meta.Technologies[:min(3, len(trends))]
		d.Meta.Summary = fmt.Sprintf("Top trends: %s.", strings.Join(top, ", "))
	}
	return d
}

// Render executes the digest template.
func Render(d Data) (string, error) {
	fm, err := yaml.Marshal(d.Meta)
	if err != nil {
		return "", fmt.Errorf("report: frontmatter: %w", err)
	}
	view := struct {
		Frontmatter string
		Summary     string
		Preface     string
		Postscript  string
		Items       []Item
	}{string(fm), d.Meta.Summary, d.Preface, d.Postscript, d.Items}

	var buf bytes.Buffer
	if err := compiled.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("report: render: %w", err)
	}
	return buf.String(), nil
}

// Write renders d into dir/<slug>.md and returns the path.
func Write(dir string, d Data) (string, error) {
	content, err := Render(d)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.Meta.Slug+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Slug is "<frequency>-YYYYMMDD"; frequency defaults to daily.
func Slug(frequency string, now time.Time) string {
	f := strings.ToLower(strings.TrimSpace(frequency))
	if f == "" {
		f = "daily"
	}
	return fmt.Sprintf("%s-%s", f, now.UTC().Format("20060102"))
}

// ExpandVars substitutes {.CurrentDate} (YYYY-MM-DD, UTC).
func ExpandVars(s string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return strings.ReplaceAll(s, "{.CurrentDate}", now.UTC().Format("2006-01-02"))
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package prompts

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Type string

const (
	TypeSummary Type = "summary"
	TypeArticle Type = "article"
)

var defaults = map[Type]string{
	TypeSummary: `Summarize the following transcript of "{{.Title}}".
Write the summary in {{.Language}}. Focus on the main arguments and conclusions.

Transcript:
{{.Transcript}}`,
	TypeArticle: `Write a well-structured article in {{.Language}} based on the transcript of "{{.Title}}".
Use Markdown headings and keep the speaker's key points.

Transcript:
{{.Transcript}}`,
}

// Data is what templates may reference.
type Data struct {
	Title      string
	Language   string
	Transcript string
	Summary    string
}

// Store keeps the prompt templates in a YAML file keyed by type.
type Store struct {
	path   string
	logger *logrus.Logger

	mu        sync.RWMutex
	templates map[Type]string
}

// Open loads the templates file. A missing or unreadable file leaves the
// built-in defaults in place.
func Open(path string, logger *logrus.Logger) *Store {
	s := &Store{
		path:      path,
		logger:    logger,
		templates: make(map[Type]string, len(defaults)),
	}
	for k, v := range defaults {
		s.templates[k] = v
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s
	}
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("Failed to read prompts, using defaults")
		return s
	}

	var stored map[Type]string
	if err := yaml.Unmarshal(data, &stored); err != nil {
		logger.WithError(err).WithField("path", path).Warn("Failed to parse prompts, using defaults")
		return s
	}
	for k, v := range stored {
		if _, known := defaults[k]; known && strings.TrimSpace(v) != "" {
			s.templates[k] = v
		}
	}
	return s
}

func (s *Store) All() map[Type]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Type]string, len(s.templates))
	for k, v := range s.templates {
		out[k] = v
	}
	return out
}

func (s *Store) Get(t Type) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[t]
	return tmpl, ok
}

func Types() []Type {
	types := make([]Type, 0, len(defaults))
	for k := range defaults {
		types = append(types, k)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Save validates and stores a template, then rewrites the file.
func (s *Store) Save(t Type, tmpl string) error {
	const op = "Prompts.Save"

	if _, known := defaults[t]; !known {
		return apperrors.InvalidInput(op, nil, "Unknown prompt type: "+string(t))
	}
	if strings.TrimSpace(tmpl) == "" {
		return apperrors.InvalidInput(op, nil, "Template is required")
	}
	if _, err := template.New(string(t)).Parse(tmpl); err != nil {
		return apperrors.InvalidInput(op, err, "Template does not parse")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[Type]string, len(s.templates))
	for k, v := range s.templates {
		next[k] = v
	}
	next[t] = tmpl

	data, err := yaml.Marshal(next)
	if err != nil {
		return apperrors.Internal(op, err, "Failed to encode prompts")
	}
	if err := writeFile(s.path, data); err != nil {
		return apperrors.Internal(op, err, "Failed to save prompts")
	}

	s.templates = next
	return nil
}

// Render executes the template of the given type.
func (s *Store) Render(t Type, data Data) (string, error) {
	const op = "Prompts.Render"

	tmpl, ok := s.Get(t)
	if !ok {
		return "", apperrors.InvalidInput(op, nil, "Unknown prompt type: "+string(t))
	}

	parsed, err := template.New(string(t)).Parse(tmpl)
	if err != nil {
		return "", apperrors.Internal(op, err, "Stored template does not parse")
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", apperrors.Internal(op, err, "Failed to render prompt")
	}
	return buf.String(), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create prompts directory")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "write prompts")
	}
	return errors.Wrap(os.Rename(tmp, path), "commit prompts")
}

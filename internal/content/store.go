package content

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrNotFound reports a missing content file.
var ErrNotFound = errors.New("content file not found")

// ErrInvalidPath rejects paths escaping the content root.
var ErrInvalidPath = errors.New("invalid content path")

// Store reads and writes page content files under one root directory.
// Persistence is last-write-wins plain files; there is no versioning.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// resolve maps a relative path into the root, rejecting traversal outside it.
func (s *Store) resolve(rel string) (string, error) {
	if rel == "" {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrInvalidPath, "%q", rel)
	}
	return filepath.Join(s.root, clean), nil
}

// Read returns the full text of one file. Missing files yield ErrNotFound.
func (s *Store) Read(rel string) (string, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrNotFound, "%q", rel)
		}
		return "", errors.Wrapf(err, "read %q", rel)
	}
	return string(data), nil
}

// Write replaces the full text of one file, creating parent directories as
// needed.
func (s *Store) Write(rel string, text string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %q", rel)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "write %q", rel)
	}
	return nil
}

// ListPages returns the base names of every .mdx file directly under the
// root, sorted.
func (s *Store) ListPages() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrap(err, "read content directory")
	}
	var pages []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".mdx" {
			continue
		}
		pages = append(pages, e.Name())
	}
	sort.Strings(pages)
	return pages, nil
}

// frontMatterDelim separates YAML front-matter from the MDX body.
const frontMatterDelim = "---"

// splitFrontMatter splits a document into its front-matter source and body.
// Documents without front-matter yield an empty matter string.
func splitFrontMatter(doc string) (matter string, body string) {
	if !strings.HasPrefix(doc, frontMatterDelim+"\n") && doc != frontMatterDelim {
		return "", doc
	}
	rest := strings.TrimPrefix(doc, frontMatterDelim+"\n")
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end < 0 {
		return "", doc
	}
	matter = rest[:end]
	body = rest[end+len("\n"+frontMatterDelim):]
	body = strings.TrimPrefix(body, "\n")
	return matter, body
}

// Meta parses the front-matter of one page (named without extension) into a
// generic mapping.
func (s *Store) Meta(page string) (map[string]any, error) {
	doc, err := s.Read(page + ".mdx")
	if err != nil {
		return nil, err
	}
	matter, _ := splitFrontMatter(doc)
	meta := map[string]any{}
	if matter == "" {
		return meta, nil
	}
	if err := yaml.Unmarshal([]byte(matter), &meta); err != nil {
		return nil, errors.Wrapf(err, "parse front matter of %q", page)
	}
	return meta, nil
}

// SetMeta replaces the front-matter of one page, keeping its body verbatim.
func (s *Store) SetMeta(page string, meta map[string]any) error {
	doc, err := s.Read(page + ".mdx")
	if err != nil {
		return err
	}
	_, body := splitFrontMatter(doc)

	matter, err := yaml.Marshal(meta)
	if err != nil {
		return errors.Wrapf(err, "encode front matter of %q", page)
	}

	var sb strings.Builder
	sb.WriteString(frontMatterDelim + "\n")
	sb.Write(matter)
	sb.WriteString(frontMatterDelim + "\n")
	sb.WriteString(body)
	return s.Write(page+".mdx", sb.String())
}

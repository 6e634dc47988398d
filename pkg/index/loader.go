package index

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var DefaultExtensions = []string{".md", ".pdf", ".txt"}

// Document is one loaded source file.
type Document struct {
	// Path is relative to the data directory, slash separated.
	Path string
	Text string
}

// Loader walks a data directory and extracts text from the files it accepts.
type Loader struct {
	Extensions []string
	// Exclude holds glob patterns matched against the relative path and the
	// base name.
	Exclude []string
}

func NewLoader(extensions []string, exclude []string) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Loader{Extensions: extensions, Exclude: exclude}
}

func (l *Loader) accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (l *Loader) excluded(rel string) (bool, error) {
	for _, pattern := range l.Exclude {
		for _, candidate := range []string{rel, filepath.Base(rel)} {
			matching, err := glob.Match(pattern, candidate)
			if err != nil {
				return false, errors.Wrapf(err, "invalid exclude pattern %s", pattern)
			}
			if matching {
				return true, nil
			}
		}
	}
	return false, nil
}

// LoadDirectory recursively loads every accepted file under dir, sorted by path.
// Files whose text is empty are skipped.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "data directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	var docs []Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !l.accepts(path) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		skip, err := l.excluded(rel)
		if err != nil {
			return err
		}
		if skip {
			log.Debug().Str("path", rel).Msg("index: excluded")
			return nil
		}

		content, err := extractText(path)
		if err != nil {
			return errors.Wrapf(err, "loading %s", rel)
		}
		if strings.TrimSpace(content) == "" {
			log.Warn().Str("path", rel).Msg("index: no text extracted, skipping")
			return nil
		}
		docs = append(docs, Document{Path: rel, Text: content})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfToText(path)
	case ".md", ".markdown":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return MarkdownToText(b)
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// MarkdownToText strips markdown syntax and keeps the readable text, one
// block per paragraph.
func MarkdownToText(source []byte) (string, error) {
	document := goldmark.DefaultParser().Parse(text.NewReader(source))

	var sb strings.Builder
	err := ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch v := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(v.Segment.Value(source))
				if v.SoftLineBreak() || v.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				sb.Write(v.Value)
			}
			return ast.WalkContinue, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(source))
				}
				return ast.WalkSkipChildren, nil
			}
		}
		if !entering && n.Type() == ast.TypeBlock {
			sb.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(blankLinesRe.ReplaceAllString(sb.String(), "\n\n")), nil
}

func pdfToText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open pdf")
	}
	defer func() {
		_ = f.Close()
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "extract pdf text")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", errors.Wrap(err, "read pdf text")
	}
	return buf.String(), nil
}

package obj

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/binzume/objscene/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset decodes input that is not valid UTF-8.
const DefaultCharset = "shift_jis"

// Loader reads an obj file together with the material libraries it references.
type Loader struct {
	name string

	// Open resolves mtllib names. Defaults to files next to the obj file.
	Open func(name string) (io.ReadCloser, error)
	// MaterialFile replaces the mtllib lookup when set.
	MaterialFile string
	// Charset is used for input that is not valid UTF-8.
	Charset string
}

// NewLoader returns new loader for the obj file at path.
func NewLoader(path string) *Loader {
	l := &Loader{name: path, Charset: DefaultCharset}
	if path != "" {
		l.Open = func(name string) (io.ReadCloser, error) {
			return os.Open(filepath.Join(filepath.Dir(path), name))
		}
	}
	return l
}

// decode returns r as UTF-8 text. A byte order mark is dropped; anything
// that is still not UTF-8 is read as l.Charset.
func (l *Loader) decode(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	charset := l.Charset
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("charset %q: %w", charset, err)
	}
	data, err = io.ReadAll(transform.NewReader(bytes.NewReader(raw), enc.NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// materialLibs lists the mtllib names of the geometry text in order.
func materialLibs(geometry string) []string {
	var names []string
	for _, line := range strings.Split(geometry, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && fields[0] == "mtllib" {
			names = append(names, strings.Join(fields[1:], " "))
		}
	}
	return names
}

func (l *Loader) readMaterial(name string) (string, error) {
	if l.Open == nil {
		return "", os.ErrNotExist
	}
	r, err := l.Open(name)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return l.decode(r)
}

// Files returns the paths of the material libraries read for m.
func (l *Loader) Files(m *Model) []string {
	if l.MaterialFile != "" {
		return []string{l.MaterialFile}
	}
	var files []string
	for _, name := range m.MaterialLibs {
		files = append(files, filepath.Join(filepath.Dir(l.name), name))
	}
	return files
}

// Load parses the obj text read from r. Libraries that cannot be read are
// logged and skipped.
func (l *Loader) Load(r io.Reader, opts ...Option) (*Model, error) {
	geometry, err := l.decode(r)
	if err != nil {
		return nil, err
	}

	var material []string
	if l.MaterialFile != "" {
		f, err := os.Open(l.MaterialFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		text, err := l.decode(f)
		if err != nil {
			return nil, err
		}
		material = append(material, text)
	} else {
		for _, name := range materialLibs(geometry) {
			text, err := l.readMaterial(name)
			if err != nil {
				logger.Warn("material library not loaded", zap.String("mtllib", name), zap.Error(err))
				continue
			}
			material = append(material, text)
		}
	}

	if l.name != "" {
		base := filepath.Base(l.name)
		opts = append([]Option{WithName(strings.TrimSuffix(base, filepath.Ext(base)))}, opts...)
	}
	return Parse(geometry, strings.Join(material, "\n"), opts...)
}

// Load reads the obj file at path and its material libraries.
func Load(path string, opts ...Option) (*Model, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return NewLoader(path).Load(r, opts...)
}

// LoadReader parses obj text from r. mtllib directives are recorded but no
// library is read.
func LoadReader(r io.Reader, opts ...Option) (*Model, error) {
	return NewLoader("").Load(r, opts...)
}

package ini

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Ini holds the key/value pairs of one or more .ini sources. Keys that
// appear before any section header land in the default section.
type Ini struct {
	defaultSectionName string
	sections           map[string]*Section
}

func New() *Ini {
	return &Ini{
		defaultSectionName: "default",
		sections:           make(map[string]*Section),
	}
}

// Load reads .ini content from any mix of sources: a file path, a literal
// string in .ini format, a byte slice, or an io.Reader.
func Load(sources ...any) (*Ini, error) {
	ini := New()
	for _, src := range sources {
		var err error
		switch v := src.(type) {
		case string:
			if looksLikeContent(v) {
				err = ini.parse(strings.NewReader(v))
			} else {
				err = ini.loadFile(v)
			}
		case []byte:
			err = ini.parse(bytes.NewReader(v))
		case io.Reader:
			err = ini.parse(v)
		default:
			err = fmt.Errorf("ini: unsupported source type %T", src)
		}
		if err != nil {
			return nil, err
		}
	}
	return ini, nil
}

func looksLikeContent(s string) bool {
	return strings.ContainsAny(s, "\n=")
}

func (ini *Ini) DefaultSectionName() string {
	return ini.defaultSectionName
}

func (ini *Ini) SetDefaultSectionName(name string) {
	ini.defaultSectionName = name
}

func (ini *Ini) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ini.parse(f)
}

func (ini *Ini) parse(r io.Reader) error {
	cur := ini.section(ini.defaultSectionName)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}
		if line[0] == '[' {
			end := strings.IndexByte(line, ']')
			if end < 0 {
				return fmt.Errorf("ini: malformed section header %q", line)
			}
			cur = ini.section(strings.TrimSpace(line[1:end]))
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		cur.Add(key, val)
	}
	return scanner.Err()
}

// section returns the named section, creating it if needed.
func (ini *Ini) section(name string) *Section {
	if s, ok := ini.sections[name]; ok {
		return s
	}
	s := NewSection(name)
	ini.sections[name] = s
	return s
}

func (ini *Ini) HasSection(name string) bool {
	_, ok := ini.sections[name]
	return ok
}

// Section returns the named section, or an empty placeholder so that callers
// can chain typed getters without nil checks.
func (ini *Ini) Section(name string) *Section {
	if s, ok := ini.sections[name]; ok {
		return s
	}
	return NewSection(name)
}

func (ini *Ini) DefaultSection() *Section {
	return ini.Section(ini.defaultSectionName)
}

func (ini *Ini) Sections() []*Section {
	ret := make([]*Section, 0, len(ini.sections))
	for _, s := range ini.sections {
		ret = append(ret, s)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// Flatten merges every section into a single key/value map. Later sections
// do not override earlier keys; the first registration wins.
func (ini *Ini) Flatten() map[string]string {
	ret := make(map[string]string)
	for _, s := range ini.Sections() {
		for k, v := range s.keys {
			if _, exists := ret[k]; !exists {
				ret[k] = v
			}
		}
	}
	return ret
}

func (ini *Ini) Write(w io.Writer) error {
	for _, s := range ini.Sections() {
		if err := s.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (ini *Ini) String() string {
	buf := &bytes.Buffer{}
	ini.Write(buf)
	return buf.String()
}

// WriteFile persists the ini content, creating parent directories as needed.
func (ini *Ini) WriteFile(path string) error {
	if dir := dirOf(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ini.Write(f)
}

func dirOf(path string) string {
	idx := strings.LastIndexAny(path, `/\`)
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

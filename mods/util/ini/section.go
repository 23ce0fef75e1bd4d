package ini

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

type Section struct {
	Name string
	keys map[string]string
}

func NewSection(name string) *Section {
	return &Section{Name: name, keys: make(map[string]string)}
}

func (s *Section) Add(key, value string) {
	s.keys[key] = value
}

func (s *Section) Remove(key string) {
	delete(s.keys, key)
}

func (s *Section) HasKey(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s *Section) Keys() []string {
	ret := make([]string, 0, len(s.keys))
	for k := range s.keys {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func (s *Section) GetValue(key string) (string, error) {
	if v, ok := s.keys[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("ini: no such key %q in section %q", key, s.Name)
}

func (s *Section) GetValueWithDefault(key, def string) string {
	if v, ok := s.keys[key]; ok {
		return v
	}
	return def
}

func (s *Section) GetBoolWithDefault(key string, def bool) bool {
	v, ok := s.keys[key]
	if !ok {
		return def
	}
	switch v {
	case "1", "t", "T", "true", "TRUE", "True", "y", "Y", "yes", "YES":
		return true
	case "0", "f", "F", "false", "FALSE", "False", "n", "N", "no", "NO":
		return false
	}
	return def
}

func (s *Section) GetInt(key string) (int, error) {
	v, err := s.GetValue(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (s *Section) GetIntWithDefault(key string, def int) int {
	if n, err := s.GetInt(key); err == nil {
		return n
	}
	return def
}

func (s *Section) GetFloat64(key string) (float64, error) {
	v, err := s.GetValue(key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(v, 64)
}

func (s *Section) GetFloat64WithDefault(key string, def float64) float64 {
	if f, err := s.GetFloat64(key); err == nil {
		return f
	}
	return def
}

func (s *Section) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "[%s]\n", s.Name); err != nil {
		return err
	}
	for _, k := range s.Keys() {
		if _, err := fmt.Fprintf(w, "%s=%s\n", k, s.keys[k]); err != nil {
			return err
		}
	}
	return nil
}

package vypercrs

import (
	"fmt"
	"strconv"
	"strings"
)

// wktQuoted finds `KEY["value"` in a WKT body and returns the quoted value.
func wktQuoted(wkt, key string) (string, error) {
	start := strings.Index(wkt, key)
	if start == -1 {
		return "", fmt.Errorf("no %s element in wkt", strings.TrimSuffix(key, `[`))
	}
	start += len(key) + 1
	end := strings.Index(wkt[start:], `"`)
	if end == -1 {
		return "", fmt.Errorf("unterminated quote after %s", key)
	}
	return wkt[start : start+end], nil
}

// wktBare finds `KEY[value,` and returns the unquoted value before the comma.
func wktBare(wkt, key string) (string, error) {
	start := strings.Index(wkt, key)
	if start == -1 {
		return "", fmt.Errorf("no %s element in wkt", strings.TrimSuffix(key, `[`))
	}
	start += len(key)
	end := strings.Index(wkt[start:], ",")
	if end == -1 {
		return "", fmt.Errorf("no delimiter after %s", key)
	}
	return wkt[start : start+end], nil
}

// wktEPSG returns the last ID["EPSG",n] authority code in the body, 0 when
// there is none.
func wktEPSG(wkt string) int {
	idx := strings.LastIndex(wkt, `ID["EPSG",`)
	if idx == -1 {
		return 0
	}
	rest := wkt[idx+len(`ID["EPSG",`):]
	end := strings.IndexAny(rest, "],")
	if end == -1 {
		return 0
	}
	code, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0
	}
	return code
}

// splitCompound cuts a COMPOUNDCRS body into its horizontal and vertical
// member WKT strings. The members are the two top-level bracketed elements
// after the name.
func splitCompound(wkt string) (hori, vert string, err error) {
	body, err := bracketBody(wkt, "COMPOUNDCRS[")
	if err != nil {
		return "", "", err
	}
	members := topLevelElements(body)
	// first member is the quoted name
	var crses []string
	for _, m := range members {
		if strings.HasPrefix(m, `"`) {
			continue
		}
		crses = append(crses, m)
	}
	if len(crses) != 2 {
		return "", "", fmt.Errorf("compound crs has %d member crs, want 2", len(crses))
	}
	if strings.HasPrefix(crses[0], "VERTCRS[") || !strings.HasPrefix(crses[1], "VERTCRS[") {
		return "", "", fmt.Errorf("compound crs members must be horizontal then vertical")
	}
	return crses[0], crses[1], nil
}

// bracketBody returns the content between a keyword's opening bracket and its
// matching close bracket.
func bracketBody(wkt, key string) (string, error) {
	start := strings.Index(wkt, key)
	if start == -1 {
		return "", fmt.Errorf("no %s element in wkt", strings.TrimSuffix(key, `[`))
	}
	depth := 0
	inQuote := false
	for i := start + len(key) - 1; i < len(wkt); i++ {
		switch wkt[i] {
		case '"':
			inQuote = !inQuote
		case '[':
			if !inQuote {
				depth++
			}
		case ']':
			if !inQuote {
				depth--
				if depth == 0 {
					return wkt[start+len(key) : i], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unbalanced brackets after %s", key)
}

// topLevelElements splits a bracket body on commas that sit at depth zero.
func topLevelElements(body string) []string {
	var elements []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '"':
			inQuote = !inQuote
		case '[':
			if !inQuote {
				depth++
			}
		case ']':
			if !inQuote {
				depth--
			}
		case ',':
			if !inQuote && depth == 0 {
				elements = append(elements, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if start < len(body) {
		elements = append(elements, strings.TrimSpace(body[start:]))
	}
	return elements
}

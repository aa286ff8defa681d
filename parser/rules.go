package parser

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nids-engine/models"
)

// Rule lines follow the usual IDS shape:
//
//	action protocol src srcports -> dst dstports (option; option; ...)
//
// Address fields are passed through verbatim; the address compiler owns their
// grammar. Ports are kept as raw strings.

// ErrRuleSyntax covers malformed rule lines.
var ErrRuleSyntax = errors.New("malformed rule")

var ruleActions = map[string]bool{
	"alert": true,
	"log":   true,
	"pass":  true,
	"drop":  true,
}

// ParseRule parses one rule line into a Rule. The line must be a complete
// rule; comments and blank lines are the caller's concern.
func ParseRule(line string) (*models.Rule, error) {
	r := &models.Rule{Raw: line}

	text := strings.TrimSpace(line)
	open := strings.Index(text, "(")
	if open < 0 || !strings.HasSuffix(text, ")") {
		return nil, fmt.Errorf("%w: missing option section: %s", ErrRuleSyntax, line)
	}

	if err := parseHeader(r, strings.TrimSpace(text[:open])); err != nil {
		return nil, err
	}
	if err := parseOptions(r, text[open+1:len(text)-1]); err != nil {
		return nil, err
	}

	if r.SID == 0 {
		return nil, fmt.Errorf("%w: rule has no sid: %s", ErrRuleSyntax, line)
	}
	return r, nil
}

// parseHeader splits the part before the option section, keeping bracket
// groups in the address fields intact.
func parseHeader(r *models.Rule, header string) error {
	fields := splitHeaderFields(header)
	if len(fields) != 7 {
		return fmt.Errorf("%w: header needs 7 fields, got %d: %s", ErrRuleSyntax, len(fields), header)
	}
	if !ruleActions[fields[0]] {
		return fmt.Errorf("%w: unknown action %q", ErrRuleSyntax, fields[0])
	}
	if fields[4] != "->" && fields[4] != "<>" {
		return fmt.Errorf("%w: bad direction %q", ErrRuleSyntax, fields[4])
	}

	r.Action = fields[0]
	r.Protocol = fields[1]
	r.Source = fields[2]
	r.SourcePorts = fields[3]
	r.Destination = fields[5]
	r.DestPorts = fields[6]
	return nil
}

// splitHeaderFields splits on whitespace outside bracket groups, so
// "[1.2.3.4, !5.6.7.8]" stays one field.
func splitHeaderFields(s string) []string {
	var fields []string
	depth := 0
	start := -1

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ' ', '\t':
			if depth == 0 && start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// parseOptions walks the option section. Options apply to the most recent
// content where the keyword is content-scoped (nocase, offset, depth,
// distance, within).
func parseOptions(r *models.Rule, opts string) error {
	for _, opt := range splitOptions(opts) {
		key, value := opt, ""
		if idx := strings.Index(opt, ":"); idx >= 0 {
			key = strings.TrimSpace(opt[:idx])
			value = strings.TrimSpace(opt[idx+1:])
		}

		var err error
		switch key {
		case "msg":
			r.Msg = unquote(value)
		case "sid":
			err = parseUint32(value, &r.SID)
		case "rev":
			r.Rev, err = strconv.Atoi(value)
		case "classtype":
			r.Classtype = value
		case "reference":
			typ, val, ok := strings.Cut(value, ",")
			if !ok {
				return fmt.Errorf("%w: bad reference %q", ErrRuleSyntax, value)
			}
			r.References = append(r.References, models.Reference{Type: typ, Value: val})
		case "noalert":
			r.NoAlert = true
		case "content":
			var bytes []byte
			bytes, err = parseContentBytes(unquote(value))
			if err == nil {
				r.Contents = append(r.Contents, models.Content{Bytes: bytes})
			}
		case "nocase":
			err = withLastContent(r, func(c *models.Content) { c.Nocase = true })
		case "offset":
			err = withLastContentUint16(r, value, func(c *models.Content, v uint16) { c.Offset = v })
		case "depth":
			err = withLastContentUint16(r, value, func(c *models.Content, v uint16) { c.Depth = v })
		case "distance":
			err = withLastContentInt(r, value, func(c *models.Content, v int) { c.Distance, c.HasDistance = v, true })
		case "within":
			err = withLastContentInt(r, value, func(c *models.Content, v int) { c.Within, c.HasWithin = v, true })
		default:
			// unknown keywords are ignored; this engine implements a
			// subset of the rule language
		}
		if err != nil {
			return fmt.Errorf("%w: option %q: %v", ErrRuleSyntax, opt, err)
		}
	}
	return nil
}

// splitOptions splits on ';' outside quoted strings, honoring '\' escapes.
func splitOptions(s string) []string {
	var opts []string
	var cur strings.Builder
	inQuote := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			cur.WriteByte(c)
			i++
			cur.WriteByte(s[i])
			continue
		case c == '"':
			inQuote = !inQuote
		case c == ';' && !inQuote:
			if t := strings.TrimSpace(cur.String()); t != "" {
				opts = append(opts, t)
			}
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if t := strings.TrimSpace(cur.String()); t != "" {
		opts = append(opts, t)
	}
	return opts
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return s
}

// parseContentBytes decodes a content value: literal bytes with backslash
// escapes, plus |xx xx| hex runs.
func parseContentBytes(s string) ([]byte, error) {
	var out []byte
	inHex := false
	var hexRun strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inHex {
			if c == '|' {
				decoded, err := hex.DecodeString(hexRun.String())
				if err != nil {
					return nil, fmt.Errorf("bad hex content %q", hexRun.String())
				}
				out = append(out, decoded...)
				hexRun.Reset()
				inHex = false
				continue
			}
			if c != ' ' {
				hexRun.WriteByte(c)
			}
			continue
		}

		switch c {
		case '|':
			inHex = true
		case '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("trailing escape in content")
			}
			i++
			out = append(out, s[i])
		default:
			out = append(out, c)
		}
	}
	if inHex {
		return nil, fmt.Errorf("unterminated hex run in content")
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty content")
	}
	return out, nil
}

func withLastContent(r *models.Rule, fn func(*models.Content)) error {
	if len(r.Contents) == 0 {
		return fmt.Errorf("no preceding content")
	}
	fn(&r.Contents[len(r.Contents)-1])
	return nil
}

func withLastContentUint16(r *models.Rule, value string, fn func(*models.Content, uint16)) error {
	v, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return err
	}
	return withLastContent(r, func(c *models.Content) { fn(c, uint16(v)) })
}

func withLastContentInt(r *models.Rule, value string, fn func(*models.Content, int)) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	return withLastContent(r, func(c *models.Content) { fn(c, v) })
}

func parseUint32(value string, dst *uint32) error {
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return err
	}
	*dst = uint32(v)
	return nil
}

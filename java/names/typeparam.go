package names

import (
	"sort"
	"strings"
)

// typeArgsBody returns the text between the first '<' and the last '>'.
func typeArgsBody(s string) (prefix, body string, ok bool) {
	i := strings.IndexByte(s, '<')
	if i < 0 {
		return s, "", false
	}
	j := strings.LastIndexByte(s, '>')
	if j < i {
		j = len(s)
	}
	return s[:i+1], s[i+1 : j], true
}

// ParseTypeParameter splits the top-level type arguments of s. A top-level
// '?' gains the "capture of " prefix, spaces outside wildcards and nested
// arguments are dropped, and nested commas render as ", ".
func ParseTypeParameter(s string) []string {
	_, body, ok := typeArgsBody(s)
	if !ok {
		return nil
	}
	return splitArgs(body, true)
}

func splitArgs(body string, capture bool) []string {
	var (
		out   []string
		sb    strings.Builder
		depth int
		wild  bool
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '?':
			if depth == 0 {
				if capture {
					sb.WriteString(CaptureOf)
				}
				wild = true
			}
			sb.WriteByte(c)
		case '<':
			depth++
			sb.WriteByte(c)
		case '>':
			depth--
			if depth < 0 {
				if sb.Len() > 0 {
					out = append(out, sb.String())
				}
				return out
			}
			sb.WriteByte(c)
		case ' ':
			if (wild || depth > 0) && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(c)
			}
		case ',':
			if depth == 0 && sb.Len() > 0 {
				out = append(out, sb.String())
				sb.Reset()
				wild = false
			} else {
				sb.WriteString(", ")
			}
		default:
			sb.WriteByte(c)
		}
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}

// ReplaceTypeParameter rewrites the top-level type arguments of s using
// replace. An argument equal to a key is replaced outright; otherwise
// "super K" and "extends K" bounds are rewritten.
func ReplaceTypeParameter(s string, replace map[string]string) string {
	prefix, body, ok := typeArgsBody(s)
	if !ok {
		return s
	}
	keys := make([]string, 0, len(replace))
	for k := range replace {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := splitArgs(body, false)
	for i, arg := range args {
		args[i] = replaceArg(arg, keys, replace)
	}
	return prefix + strings.Join(args, ", ") + ">"
}

func replaceArg(arg string, keys []string, replace map[string]string) string {
	for _, k := range keys {
		v := replace[k]
		switch {
		case arg == k:
			return v
		case strings.Contains(arg, "super "+k):
			return strings.ReplaceAll(arg, "super "+k, "super "+v)
		case strings.Contains(arg, "extends "+k):
			return strings.ReplaceAll(arg, "extends "+k, "extends "+v)
		}
	}
	return arg
}

// ReplaceFromMap replaces every occurrence of each key, longest key first.
func ReplaceFromMap(s string, replace map[string]string) string {
	keys := make([]string, 0, len(replace))
	for k := range replace {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, replace[k])
	}
	return s
}

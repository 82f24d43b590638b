package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Read returns at most maxLines from the end of the file at path.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed slog record.
type Entry struct {
	Time    string
	Level   slog.Level
	Message string
	// Attrs holds the remaining key=value pairs.
	Attrs string
	// Raw is set when the line was not a recognizable slog record.
	Raw string
}

// Parse decodes a line written by slog's text or JSON handler. Lines in any
// other format come back with only Raw set and level INFO.
func Parse(line string) Entry {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		if e, ok := parseJSON(trimmed); ok {
			return e
		}
	}
	if e, ok := parseText(trimmed); ok {
		return e
	}
	return Entry{Level: slog.LevelInfo, Raw: line}
}

// Filter keeps lines at or above minLevel.
func Filter(lines []string, minLevel slog.Level) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if Parse(line).Level >= minLevel {
			out = append(out, line)
		}
	}
	return out
}

func parseJSON(line string) (Entry, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{}, false
	}
	levelRaw, ok := fields[slog.LevelKey].(string)
	if !ok {
		return Entry{}, false
	}
	var e Entry
	if err := e.Level.UnmarshalText([]byte(levelRaw)); err != nil {
		return Entry{}, false
	}
	e.Time, _ = fields[slog.TimeKey].(string)
	e.Message, _ = fields[slog.MessageKey].(string)

	delete(fields, slog.LevelKey)
	delete(fields, slog.TimeKey)
	delete(fields, slog.MessageKey)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
		}
		e.Attrs = strings.Join(parts, " ")
	}
	return e, true
}

// parseText reads the time=... level=... msg=... prefix slog's text handler
// writes; everything after msg is kept verbatim as Attrs.
func parseText(line string) (Entry, bool) {
	var e Entry
	rest := line
	if v, r, ok := cutField(rest, slog.TimeKey); ok {
		e.Time, rest = v, r
	}
	v, r, ok := cutField(rest, slog.LevelKey)
	if !ok {
		return Entry{}, false
	}
	if err := e.Level.UnmarshalText([]byte(v)); err != nil {
		return Entry{}, false
	}
	rest = r
	if v, r, ok := cutField(rest, slog.MessageKey); ok {
		e.Message, rest = v, r
	}
	e.Attrs = strings.TrimSpace(rest)
	return e, true
}

// cutField consumes a leading key=value pair, honoring slog's quoting.
func cutField(s, key string) (value, rest string, ok bool) {
	s = strings.TrimLeft(s, " ")
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return "", s, false
	}
	s = s[len(prefix):]
	if strings.HasPrefix(s, `"`) {
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case '"':
				var unquoted string
				if err := json.Unmarshal([]byte(s[:i+1]), &unquoted); err != nil {
					return "", s, false
				}
				return unquoted, s[i+1:], true
			}
		}
		return "", s, false
	}
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		return s[:idx], s[idx:], true
	}
	return s, "", true
}

package columns

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dyluth/boardsync/pkg/board"
)

// Built-in column-type identifiers.
const (
	TypeStatus   = "status"
	TypePriority = "priority"
	TypeText     = "text"
	TypeDate     = "date"
	TypeMembers  = "members"
	TypeNumber   = "number"
	TypeTags     = "tags"
	TypeTimeline = "timeline"
)

// dateLayout is how date and timeline values render.
const dateLayout = "2006-01-02"

// labelKeys are the object keys tried, in order, when a value is a labelled object.
var labelKeys = []string{"label", "title", "txt", "name"}

// TextRenderer renders rich-text values as plain text.
// Markup is stripped, entities are decoded and whitespace is collapsed.
type TextRenderer struct {
	policy *bluemonday.Policy
}

// NewTextRenderer creates a renderer with a tag-stripping policy.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{policy: bluemonday.StripTagsPolicy()}
}

// RenderText implements Renderer.
func (r *TextRenderer) RenderText(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	s = html.UnescapeString(s)
	s = r.policy.Sanitize(s)
	// bluemonday escapes what it keeps
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// renderLabel handles status and priority: a bare label or a labelled object.
func renderLabel(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		return labelOf(v)
	}
	return ""
}

func labelOf(m map[string]any) string {
	for _, k := range labelKeys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func renderDate(value any) string {
	switch v := value.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC().Format(dateLayout)
		}
		return v
	case time.Time:
		return v.UTC().Format(dateLayout)
	}
	if ms, ok := toInt64(value); ok {
		return time.UnixMilli(ms).UTC().Format(dateLayout)
	}
	return ""
}

func renderMembers(value any) string {
	var names []string
	switch v := value.(type) {
	case []board.User:
		for _, u := range v {
			names = appendNonEmpty(names, memberName(u.FullName, u.Username))
		}
	case []any:
		for _, e := range v {
			switch m := e.(type) {
			case map[string]any:
				full, _ := m["fullname"].(string)
				user, _ := m["username"].(string)
				names = appendNonEmpty(names, memberName(full, user))
			case string:
				names = appendNonEmpty(names, m)
			}
		}
	}
	return strings.Join(names, ", ")
}

func memberName(fullName, username string) string {
	if fullName != "" {
		return fullName
	}
	return username
}

func renderNumber(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case string:
		return v
	}
	if n, ok := toInt64(value); ok {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

func renderTags(value any) string {
	var labels []string
	switch v := value.(type) {
	case []string:
		for _, s := range v {
			labels = appendNonEmpty(labels, s)
		}
	case []any:
		for _, e := range v {
			switch t := e.(type) {
			case string:
				labels = appendNonEmpty(labels, t)
			case map[string]any:
				labels = appendNonEmpty(labels, labelOf(t))
			}
		}
	}
	return strings.Join(labels, ", ")
}

func renderTimeline(value any) string {
	m, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	from := renderDate(m["from"])
	to := renderDate(m["to"])
	switch {
	case from == "" && to == "":
		return ""
	case to == "":
		return from
	case from == "":
		return to
	}
	return fmt.Sprintf("%s - %s", from, to)
}

// toInt64 accepts the integer shapes produced by JSON, BSON and Go literals.
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func appendNonEmpty(dst []string, s string) []string {
	if s == "" {
		return dst
	}
	return append(dst, s)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2017, Denis Parchenko.
// Copyright (c) 2022, Unikraft GmbH. All rights reserved.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const defaultTimestampFormat = time.RFC3339

// startedAt anchors the "[NNNN]" relative timestamp TextFormatter prints
// when FullTimestamp is unset.
var startedAt = time.Now()

func secondsSinceStart() int {
	return int(time.Since(startedAt) / time.Second)
}

// styleFunc renders one or more strings through a lipgloss style (or, for
// noColorStyles, through no style at all).
type styleFunc func(...string) string

// ColorScheme assigns a styleFunc to each logrus level plus the prefix
// and timestamp segments, so a caller can swap in its own palette via
// TextFormatter.SetColorScheme.
type ColorScheme struct {
	InfoLevel  styleFunc
	WarnLevel  styleFunc
	ErrorLevel styleFunc
	FatalLevel styleFunc
	PanicLevel styleFunc
	DebugLevel styleFunc
	TraceLevel styleFunc
	Prefix     styleFunc
	Timestamp  styleFunc
}

var adaptiveBadge = lipgloss.AdaptiveColor{Light: "15", Dark: "0"}

func badge(bg string) styleFunc {
	return lipgloss.NewStyle().Background(lipgloss.Color(bg)).Foreground(adaptiveBadge).Render
}

var defaultColors = &ColorScheme{
	InfoLevel:  badge("8"),
	WarnLevel:  badge("11"),
	ErrorLevel: badge("9"),
	FatalLevel: badge("9"),
	PanicLevel: badge("9"),
	DebugLevel: badge("12"),
	TraceLevel: lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("15")).Render,
	Prefix:     badge("8"),
	Timestamp:  lipgloss.NewStyle().Render,
}

var noColors = &ColorScheme{
	InfoLevel:  lipgloss.NewStyle().Render,
	WarnLevel:  lipgloss.NewStyle().Render,
	ErrorLevel: lipgloss.NewStyle().Render,
	FatalLevel: lipgloss.NewStyle().Render,
	PanicLevel: lipgloss.NewStyle().Render,
	DebugLevel: lipgloss.NewStyle().Render,
	TraceLevel: lipgloss.NewStyle().Render,
	Prefix:     lipgloss.NewStyle().Render,
	Timestamp:  lipgloss.NewStyle().Render,
}

// TextFormatter is a logrus.Formatter producing a single-character level
// badge, an optional relative or absolute timestamp, and a "[prefix]"
// segment pulled out of the message (or the "prefix" field), colored via
// a ColorScheme when writing to a terminal.
type TextFormatter struct {
	// ForceColors bypasses the TTY check before outputting colors.
	ForceColors bool

	// DisableColors forces colors off even for a TTY.
	DisableColors bool

	// ForceFormatting forces the terminal layout even for non-TTY output.
	ForceFormatting bool

	// DisableTimestamp omits the timestamp segment entirely.
	DisableTimestamp bool

	// FullTimestamp prints TimestampFormat instead of the relative "[N]"
	// seconds-since-start counter.
	FullTimestamp bool

	// TimestampFormat is used when FullTimestamp is set; defaults to
	// time.RFC3339.
	TimestampFormat string

	// DisableSorting turns off the default alphabetical field ordering.
	DisableSorting bool

	// QuoteEmptyFields wraps an empty field value in quotes.
	QuoteEmptyFields bool

	// QuoteCharacter overrides the default '"' quoting character.
	QuoteCharacter string

	// SpacePadding right-pads the message to this width when nonzero.
	SpacePadding int

	colors     *ColorScheme
	isTerminal bool

	sync.Once
}

func (f *TextFormatter) init(entry *logrus.Entry) {
	if len(f.QuoteCharacter) == 0 {
		f.QuoteCharacter = "\""
	}
	if entry.Logger != nil {
		f.isTerminal = isTerminalWriter(entry.Logger.Out)
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// SetColorScheme overrides the palette used when writing to a colored
// terminal.
func (f *TextFormatter) SetColorScheme(colors *ColorScheme) {
	f.colors = colors
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	lastKeyIdx := len(keys) - 1

	if !f.DisableSorting {
		sort.Strings(keys)
	}

	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	guardReservedFieldNames(entry.Data)

	f.Do(func() { f.init(entry) })

	if f.ForceFormatting || f.isTerminal {
		colors := noColors
		if (f.ForceColors || f.isTerminal) && !f.DisableColors {
			if f.colors != nil {
				colors = f.colors
			} else {
				colors = defaultColors
			}
		}
		f.formatTerminal(b, entry, keys, colors)
	} else {
		f.formatPlain(b, entry, keys, lastKeyIdx)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *TextFormatter) formatPlain(b *bytes.Buffer, entry *logrus.Entry, keys []string, lastKeyIdx int) {
	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = defaultTimestampFormat
	}

	if !f.DisableTimestamp {
		f.appendKeyValue(b, "time", entry.Time.Format(timestampFormat), true)
	}
	f.appendKeyValue(b, "level", entry.Level.String(), true)
	if entry.Message != "" {
		f.appendKeyValue(b, "msg", entry.Message, lastKeyIdx >= 0)
	}
	for i, key := range keys {
		f.appendKeyValue(b, key, entry.Data[key], lastKeyIdx != i)
	}
}

func (f *TextFormatter) formatTerminal(b *bytes.Buffer, entry *logrus.Entry, keys []string, colors *ColorScheme) {
	var badgeText string
	var levelColor styleFunc
	switch entry.Level {
	case logrus.InfoLevel:
		badgeText, levelColor = "i", colors.InfoLevel
	case logrus.WarnLevel:
		badgeText, levelColor = "W", colors.WarnLevel
	case logrus.ErrorLevel:
		badgeText, levelColor = "E", colors.ErrorLevel
	case logrus.FatalLevel:
		badgeText, levelColor = "!", colors.FatalLevel
	case logrus.PanicLevel:
		badgeText, levelColor = "X", colors.PanicLevel
	case logrus.TraceLevel:
		badgeText, levelColor = "T", colors.TraceLevel
	default:
		badgeText, levelColor = "D", colors.DebugLevel
	}

	level := levelColor(fmt.Sprintf(" %1s ", badgeText))
	prefix := ""
	message := entry.Message

	if prefixValue, ok := entry.Data["prefix"]; ok {
		prefix = colors.Prefix(" " + prefixValue.(string) + ":")
	} else if p, trimmed := splitPrefix(entry.Message); len(p) > 0 {
		prefix = colors.Prefix(" " + p + ":")
		message = trimmed
	}

	messageFormat := "%s"
	if f.SpacePadding != 0 {
		messageFormat = fmt.Sprintf("%%-%ds", f.SpacePadding)
	}

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = defaultTimestampFormat
	}

	if f.DisableTimestamp {
		fmt.Fprintf(b, "%s%s "+messageFormat, level, prefix, message)
	} else {
		var timestamp string
		if !f.FullTimestamp {
			timestamp = fmt.Sprintf("[%04d]", secondsSinceStart())
		} else {
			timestamp = entry.Time.Format(timestampFormat)
		}
		fmt.Fprintf(b, "%s %s%s "+messageFormat, level, colors.Timestamp(timestamp), prefix, message)
	}

	for _, k := range keys {
		if k != "prefix" {
			fmt.Fprintf(b, " %s=%+v", levelColor(k), entry.Data[k])
		}
	}
}

func (f *TextFormatter) needsQuoting(text string) bool {
	if f.QuoteEmptyFields && len(text) == 0 {
		return true
	}
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.') {
			return true
		}
	}
	return false
}

var prefixPattern = regexp.MustCompile(`^\[(.*?)\]`)

// splitPrefix pulls a leading "[name]" tag off msg, as emitted by
// callers that want a component tag without adding a logrus field.
func splitPrefix(msg string) (string, string) {
	if !prefixPattern.MatchString(msg) {
		return "", msg
	}
	match := prefixPattern.FindString(msg)
	return match[1 : len(match)-1], strings.TrimSpace(msg[len(match):])
}

func (f *TextFormatter) appendKeyValue(b *bytes.Buffer, key string, value interface{}, appendSpace bool) {
	b.WriteString(key)
	b.WriteByte('=')
	f.appendValue(b, value)

	if appendSpace {
		b.WriteByte(' ')
	}
}

func (f *TextFormatter) appendValue(b *bytes.Buffer, value interface{}) {
	switch value := value.(type) {
	case string:
		f.writeMaybeQuoted(b, value)
	case error:
		f.writeMaybeQuoted(b, value.Error())
	default:
		fmt.Fprint(b, value)
	}
}

func (f *TextFormatter) writeMaybeQuoted(b *bytes.Buffer, s string) {
	if !f.needsQuoting(s) {
		b.WriteString(s)
		return
	}
	fmt.Fprintf(b, "%s%v%s", f.QuoteCharacter, s, f.QuoteCharacter)
}

// guardReservedFieldNames renames any "time"/"msg"/"level" field already
// present in data so Format doesn't silently overwrite it with the
// entry's own time/message/level when flattening the map.
func guardReservedFieldNames(data logrus.Fields) {
	if t, ok := data["time"]; ok {
		data["fields.time"] = t
	}
	if m, ok := data["msg"]; ok {
		data["fields.msg"] = m
	}
	if l, ok := data["level"]; ok {
		data["fields.level"] = l
	}
}

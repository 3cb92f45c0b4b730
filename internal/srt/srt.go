// Package srt parses SubRip subtitle files and groups their entries into
// duration-bounded scenes for downstream prompt generation.
package srt

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is a single subtitle cue.
type Entry struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration returns the length of the cue.
func (e Entry) Duration() time.Duration {
	return e.End - e.Start
}

var timelineRe = regexp.MustCompile(`(\d{1,2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{1,2}:\d{2}:\d{2}[,.]\d{3})`)

// ParseTimestamp converts an SRT timestamp ("HH:MM:SS,mmm", period also
// accepted) into a duration.
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")

	parts := strings.Split(s, ":")
	var hours, minutes int
	var seconds float64
	var err error

	switch len(parts) {
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		if seconds, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	case 2:
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		if seconds, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	case 1:
		if seconds, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	default:
		return 0, fmt.Errorf("parse timestamp %q: unexpected format", s)
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, nil
}

// FormatTimestamp renders a duration as an SRT timestamp.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseFile reads and parses an SRT file.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

var blockSplitRe = regexp.MustCompile(`\n\s*\n`)

// Parse reads SRT content from r. Malformed blocks are skipped rather than
// failing the whole file; transcription output is not always pristine.
func Parse(r io.Reader) ([]Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}

	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var entries []Entry
	for _, block := range blockSplitRe.Split(strings.TrimSpace(content), -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}

		m := timelineRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
		if m == nil {
			continue
		}
		start, err := ParseTimestamp(m[1])
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(m[2])
		if err != nil {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[2:], "\n"))
		if text == "" {
			continue
		}

		entries = append(entries, Entry{Index: index, Start: start, End: end, Text: text})
	}

	return entries, nil
}

// Scene is a run of consecutive cues merged into a single narrative beat.
type Scene struct {
	ID      int
	Start   time.Duration
	End     time.Duration
	Text    string
	Entries []Entry
}

// Duration returns the length of the scene.
func (s Scene) Duration() time.Duration {
	return s.End - s.Start
}

// sentence-final punctuation, Latin and CJK.
var sentenceEnders = []string{".", "!", "?", "。", "！", "？"}

func endsSentence(text string) bool {
	text = strings.TrimRight(text, " \t")
	for _, p := range sentenceEnders {
		if strings.HasSuffix(text, p) {
			return true
		}
	}
	return false
}

// GroupScenes merges cues into scenes between minDur and maxDur long. A
// scene closes once the next cue would push it past maxDur, or past minDur
// when the last cue ended on sentence-final punctuation. Scene ids start
// at 1 and are assigned in order.
func GroupScenes(entries []Entry, minDur, maxDur time.Duration) []Scene {
	if len(entries) == 0 {
		return nil
	}

	var scenes []Scene
	var current []Entry
	start := entries[0].Start

	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, e := range current {
			parts[i] = e.Text
		}
		scenes = append(scenes, Scene{
			ID:      len(scenes) + 1,
			Start:   start,
			End:     current[len(current)-1].End,
			Text:    strings.Join(parts, " "),
			Entries: current,
		})
		current = nil
	}

	for _, entry := range entries {
		elapsed := entry.End - start

		split := false
		if elapsed >= maxDur {
			split = true
		} else if elapsed >= minDur && len(current) > 0 && endsSentence(current[len(current)-1].Text) {
			split = true
		}

		if split && len(current) > 0 {
			flush()
			start = entry.Start
		}
		current = append(current, entry)
	}
	flush()

	return scenes
}

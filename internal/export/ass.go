package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kokistudios/beodata/internal/numbering"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/text"
)

// Caption style names. Each line yields one event per applicable style, all
// sharing the line's time slot.
const (
	StyleOldEnglish    = "Old English"
	StyleModernEnglish = "Modern English"
	StyleBigNumbers    = "Big Numbers"
	StyleAllNumbers    = "All Numbers"
	StyleFittHeadings  = "Fitt Headings"
)

const defaultSecondsPerLine = 4

var assStyles = []string{
	"Style: Old English,Junicode,64,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,2,1,8,80,80,120,1",
	"Style: Modern English,Georgia,48,&H00C8E6FF,&H000000FF,&H00000000,&H80000000,0,1,0,0,100,100,0,0,1,2,1,2,80,80,120,1",
	"Style: Big Numbers,Georgia,96,&H0000C8FF,&H000000FF,&H00000000,&H80000000,1,0,0,0,100,100,0,0,1,3,1,4,60,60,60,1",
	"Style: All Numbers,Georgia,32,&H00A0A0A0,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,1,0,6,60,60,40,1",
	"Style: Fitt Headings,Junicode,72,&H0000C8FF,&H000000FF,&H00000000,&H80000000,1,0,0,0,100,100,0,0,1,2,1,5,80,80,60,1",
}

// Section caption file name, e.g. "fitt_3.ass".
func assFileName(id int) string {
	return fmt.Sprintf("fitt_%d.ass", id)
}

// WriteASSDir writes one caption file per present section into dir.
func WriteASSDir(dir string, e *query.Engine, secondsPerLine int) ([]string, error) {
	m := e.Model()
	var paths []string
	for _, s := range m.Sections() {
		if s.Absent {
			continue
		}
		sl, err := e.GetSection(s.ID)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, assFileName(s.ID))
		err = writeFile(path, func(w io.Writer) error {
			return WriteASS(w, m, s, sl.Lines, secondsPerLine)
		})
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteASS writes the caption script of section s. Line i of the section
// occupies the slot [i*secondsPerLine, (i+1)*secondsPerLine). Absent lines
// keep their slot and number but carry no text events.
func WriteASS(w io.Writer, m *numbering.Model, s numbering.Section, lines []query.Line, secondsPerLine int) error {
	if secondsPerLine < 1 {
		secondsPerLine = defaultSecondsPerLine
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "[Script Info]")
	fmt.Fprintf(bw, "Title: %s\n", s.Name)
	fmt.Fprintln(bw, "ScriptType: v4.00+")
	fmt.Fprintln(bw, "PlayResX: 1920")
	fmt.Fprintln(bw, "PlayResY: 1080")
	fmt.Fprintf(bw, "Fitt: %d\n", s.ID)
	fmt.Fprintf(bw, "First Line: %d\n", s.Start)
	fmt.Fprintf(bw, "Last Line: %d\n", s.End)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "[V4+ Styles]")
	fmt.Fprintln(bw, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding")
	for _, st := range assStyles {
		fmt.Fprintln(bw, st)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "[Events]")
	fmt.Fprintln(bw, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text")
	slot := time.Duration(secondsPerLine) * time.Second
	for i, l := range lines {
		start := time.Duration(i) * slot
		end := start + slot
		event := func(style, text string) {
			fmt.Fprintf(bw, "Dialogue: 0,%s,%s,%s,%s,0,0,0,,%s\n",
				assTime(start), assTime(end), style, style, assEscape(text))
		}
		if !l.Absent {
			event(StyleOldEnglish, l.OldEnglish)
			event(StyleModernEnglish, l.ModernEnglish)
		}
		event(StyleAllNumbers, strconv.Itoa(l.Number))
		if m.Marker(l.Number) {
			event(StyleBigNumbers, strconv.Itoa(l.Number))
		}
		if l.Heading != "" {
			event(StyleFittHeadings, l.Heading)
		}
	}
	return bw.Flush()
}

// assTime formats d as H:MM:SS.cc.
func assTime(d time.Duration) string {
	cs := d.Milliseconds() / 10
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs/6000%60, cs/100%60, cs%100)
}

func assEscape(s string) string {
	return strings.ReplaceAll(s, "\n", `\N`)
}

func assUnescape(s string) string {
	return strings.ReplaceAll(s, `\N`, "\n")
}

// Captions is a parsed caption script.
type Captions struct {
	Section   int
	FirstLine int
	LastLine  int
	Lines     []query.Line
}

// ReadASS parses the output of WriteASS back into lines. A line whose slot
// has a number but no text events is read as absent.
func ReadASS(r io.Reader) (Captions, error) {
	var (
		c       Captions
		inEvent bool
		bySlot  = map[string]*query.Line{}
		order   []string
		hasText = map[string]bool{}
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "[") {
			inEvent = line == "[Events]"
			continue
		}
		if !inEvent {
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			var err error
			switch key {
			case "Fitt":
				c.Section, err = strconv.Atoi(value)
			case "First Line":
				c.FirstLine, err = strconv.Atoi(value)
			case "Last Line":
				c.LastLine, err = strconv.Atoi(value)
			}
			if err != nil {
				return Captions{}, fmt.Errorf("script info %s: %w", key, err)
			}
			continue
		}

		rest, ok := strings.CutPrefix(line, "Dialogue: ")
		if !ok {
			continue
		}
		fields := strings.SplitN(rest, ",", 10)
		if len(fields) != 10 {
			return Captions{}, fmt.Errorf("malformed dialogue %q", line)
		}
		slot, style, body := fields[1], fields[3], assUnescape(fields[9])
		l, seen := bySlot[slot]
		if !seen {
			l = &query.Line{LineRecord: text.LineRecord{Section: c.Section}}
			bySlot[slot] = l
			order = append(order, slot)
		}
		switch style {
		case StyleOldEnglish:
			l.OldEnglish = body
			hasText[slot] = true
		case StyleModernEnglish:
			l.ModernEnglish = body
			hasText[slot] = true
		case StyleAllNumbers:
			n, err := strconv.Atoi(body)
			if err != nil {
				return Captions{}, fmt.Errorf("line number event %q: %w", body, err)
			}
			l.Number = n
		case StyleFittHeadings:
			l.Heading = body
		}
	}
	if err := sc.Err(); err != nil {
		return Captions{}, fmt.Errorf("reading captions: %w", err)
	}
	c.Lines = make([]query.Line, len(order))
	for i, slot := range order {
		l := bySlot[slot]
		l.Absent = !hasText[slot]
		c.Lines[i] = *l
	}
	return c, nil
}

// ReadASSFile parses a caption file from disk.
func ReadASSFile(path string) (Captions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Captions{}, err
	}
	defer f.Close()
	return ReadASS(f)
}

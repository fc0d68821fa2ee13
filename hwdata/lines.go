// Package hwdata loads handwritten text lines from the IAM
// database layout.
//
// The metadata file, lines.txt, has one line per text
// line:
//
//	a01-000u-00 ok 154 19 408 746 1661 89 A|MOVE|to|stop|Mr.|Gaitskell|from
//
// giving the line ID, the segmentation status, the
// binarization gray level, the component count, the
// bounding box (x, y, w, h), and the transcript with words
// joined by "|".
package hwdata

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// A Line is one entry of lines.txt.
type Line struct {
	ID string

	// OK is true if the line was segmented without errors.
	OK bool

	GrayLevel  int
	Components int

	X, Y, Width, Height int

	// Transcript uses spaces between words.
	Transcript string
}

// A ParseError reports a malformed entry in lines.txt.
type ParseError struct {
	LineNum int
	Msg     string
}

func (p *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", p.LineNum, p.Msg)
}

// ParseLines reads the entries of a lines.txt file.
// Blank lines and lines starting with "#" are skipped.
func ParseLines(r io.Reader) ([]*Line, error) {
	var res []*Line
	scanner := bufio.NewScanner(r)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		line, err := parseLine(text)
		if err != nil {
			return nil, &ParseError{LineNum: lineNum, Msg: err.Error()}
		}
		res = append(res, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func parseLine(text string) (*Line, error) {
	fields := strings.Fields(text)
	if len(fields) < 9 {
		return nil, fmt.Errorf("expected at least 9 fields but got %d", len(fields))
	}
	res := &Line{ID: fields[0]}
	switch fields[1] {
	case "ok":
		res.OK = true
	case "err":
	default:
		return nil, fmt.Errorf("unknown segmentation status %q", fields[1])
	}
	ints := []*int{&res.GrayLevel, &res.Components, &res.X, &res.Y, &res.Width,
		&res.Height}
	for i, ptr := range ints {
		x, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return nil, fmt.Errorf("bad field %d: %s", i+3, err)
		}
		*ptr = x
	}
	if strings.Count(res.ID, "-") < 2 {
		return nil, fmt.Errorf("bad line ID %q", res.ID)
	}

	// Transcripts never contain spaces in practice, but the
	// remaining fields are joined in case they do.
	words := strings.Join(fields[8:], " ")
	res.Transcript = strings.ReplaceAll(words, "|", " ")
	return res, nil
}

// ImagePath returns the path to the line's image.
//
// For example, line a01-000u-00 is stored in
// root/lines/a01/a01-000u/a01-000u-00.png.
func (l *Line) ImagePath(root string) string {
	parts := strings.Split(l.ID, "-")
	form := parts[0] + "-" + parts[1]
	return filepath.Join(root, "lines", parts[0], form, l.ID+".png")
}

// ScaledWidth estimates the width of the line image after
// it is resized to the given height.
func (l *Line) ScaledWidth(height int) int {
	if l.Height <= 0 {
		return l.Width
	}
	return (l.Width*height + l.Height/2) / l.Height
}

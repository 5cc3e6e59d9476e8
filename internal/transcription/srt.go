package transcription

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

var (
	timestampRe = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[.,](\d{1,3})$`)
	blankLineRe = regexp.MustCompile(`\n\s*\n`)
)

// ParseSRT parses subtitle text into segments.
//
//	1                                 sequence number
//	00:00:01,000 --> 00:00:03,500     start --> end
//	hello                             text line
//	world                             text line
//
// Multi-line text is joined with spaces. Blocks with an unparseable timing line are skipped.
func ParseSRT(srt string) []types.TranscriptSegment {
	srt = strings.ReplaceAll(srt, "\r\n", "\n")
	blocks := blankLineRe.Split(strings.TrimSpace(srt), -1)

	segments := make([]types.TranscriptSegment, 0, len(blocks))
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")

		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			continue
		}

		start, end, ok := strings.Cut(lines[timing], "-->")
		if !ok {
			continue
		}
		startMs, err := ParseTimestamp(start)
		if err != nil {
			continue
		}
		endMs, err := ParseTimestamp(end)
		if err != nil {
			continue
		}

		var text []string
		for _, line := range lines[timing+1:] {
			if line = strings.TrimSpace(line); line != "" {
				text = append(text, line)
			}
		}

		segments = append(segments, types.TranscriptSegment{
			StartMs: startMs,
			EndMs:   endMs,
			Text:    strings.Join(text, " "),
		})
	}

	return segments
}

// ParseTimestamp converts HH:MM:SS,mmm or HH:MM:SS.mmm to milliseconds.
func ParseTimestamp(ts string) (int64, error) {
	// whisper may append cue settings after the end time
	fields := strings.Fields(ts)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty timestamp")
	}
	m := timestampRe.FindStringSubmatch(fields[0])
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	h, _ := strconv.ParseInt(m[1], 10, 64)
	mins, _ := strconv.ParseInt(m[2], 10, 64)
	sec, _ := strconv.ParseInt(m[3], 10, 64)
	// pad "5" to "500" so a short fraction still means tenths
	frac := m[4] + strings.Repeat("0", 3-len(m[4]))
	ms, _ := strconv.ParseInt(frac, 10, 64)

	return ((h*60+mins)*60+sec)*1000 + ms, nil
}

package videogen

import (
	"fmt"
	"strings"
)

// BuildClipPrompt describes one 8 second narrator clip in the style of the detected show.
func BuildClipPrompt(show, line string) string {
	show = strings.TrimSpace(show)
	vibe := "the original video"
	if show != "" && !strings.EqualFold(show, "unknown") {
		vibe = fmt.Sprintf("the show %q", show)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "An 8 second clip matching the look, palette and vibe of %s, using the reference frame for continuity. ", vibe)
	b.WriteString("A friendly original narrator character speaks directly to the viewer in a warm, consistent tone. ")
	b.WriteString("Do not depict or imitate any copyrighted characters. ")
	fmt.Fprintf(&b, "The narrator says exactly: %q", strings.TrimSpace(line))
	return b.String()
}

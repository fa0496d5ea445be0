package speech

import (
	"regexp"
	"strings"
)

// Emoji blocks stripped when emoji reading is off. Kept as explicit ranges
// so the behavior is easy to audit against what actually shows up in chat.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols & pictographs
	{0x1F680, 0x1F6FF}, // transport
	{0x1F1E0, 0x1F1FF}, // regional indicators / flags
	{0x2600, 0x26FF},   // misc symbols
	{0x2700, 0x27BF},   // dingbats
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x1FA00, 0x1FA6F}, // chess etc.
	{0x1FA70, 0x1FAFF}, // extended pictographs
}

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	wwwRe        = regexp.MustCompile(`www\.\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// FilterOptions controls which transforms FilterText applies. Whitespace
// collapsing always runs.
type FilterOptions struct {
	KeepEmojis bool
	KeepLinks  bool
}

// FilterText prepares raw chat text for synthesis. The result can be
// empty, in which case the message is dropped instead of spoken.
func FilterText(text string, opts FilterOptions) string {
	filtered := text

	if !opts.KeepEmojis {
		filtered = strings.Map(func(r rune) rune {
			for _, rng := range emojiRanges {
				if r >= rng[0] && r <= rng[1] {
					return -1
				}
			}
			return r
		}, filtered)
	}

	if !opts.KeepLinks {
		filtered = urlRe.ReplaceAllString(filtered, "")
		filtered = wwwRe.ReplaceAllString(filtered, "")
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(filtered, " "))
}

package keyword

import (
	"regexp"
	"strings"
)

// delimiterClass lists ASCII and Unicode punctuation, currency and math symbols,
// full-width CJK punctuation and the characters behind &nbsp; &ensp; &emsp;
// &thinsp; &zwnj; and &zwj;.
var delimiterClass = regexp.MustCompile(`^[` +
	`\$\x{FFE5}\^\+=\x{60}~<>{}\[\]|\x{00A0}|\x{2002}|\x{2003}|\x{2009}|` +
	`\x{200C}|\x{200D}|\x{3002}|\x{FF1F}|\x{FF01}|\x{FF0C}|\x{3001}|\x{FF1B}|` +
	`\x{FF1A}|\x{201C}|\x{201D}|\x{2018}|\x{2019}|\x{FF08}|\x{FF09}|\x{300A}|` +
	`\x{300B}|\x{3010}|\x{3011}|\x{007E}!-#%-\x{2A},-/:;\x{3F}@\x{5B}-\x{5D}_` +
	`\x{7B}}\x{00A1}\x{00A7}\x{00AB}\x{00B6}\x{00B7}\x{00BB}\x{00BF}\x{037E}` +
	`\x{0387}\x{055A}-\x{055F}\x{0589}\x{058A}\x{05BE}\x{05C0}\x{05C3}` +
	`\x{05C6}\x{05F3}\x{05F4}\x{0609}\x{060A}\x{060C}\x{060D}\x{061B}\x{061E}` +
	`\x{061F}\x{066A}-\x{066D}\x{06D4}\x{0700}-\x{070D}\x{07F7}-\x{07F9}` +
	`\x{0830}-\x{083E}\x{085E}\x{0964}\x{0965}\x{0970}\x{0AF0}\x{0DF4}` +
	`\x{0E4F}\x{0E5A}\x{0E5B}\x{0F04}-\x{0F12}\x{0F14}\x{0F3A}-\x{0F3D}` +
	`\x{0F85}\x{0FD0}-\x{0FD4}\x{0FD9}\x{0FDA}\x{104A}-\x{104F}\x{10FB}` +
	`\x{1360}-\x{1368}\x{1400}\x{166D}\x{166E}\x{169B}\x{169C}` +
	`\x{16EB}-\x{16ED}\x{1735}\x{1736}\x{17D4}-\x{17D6}\x{17D8}-\x{17DA}` +
	`\x{1800}-\x{180A}\x{1944}\x{1945}\x{1A1E}\x{1A1F}\x{1AA0}-\x{1AA6}` +
	`\x{1AA8}-\x{1AAD}\x{1B5A}-\x{1B60}\x{1BFC}-\x{1BFF}\x{1C3B}-\x{1C3F}` +
	`\x{1C7E}\x{1C7F}\x{1CC0}-\x{1CC7}\x{1CD3}\x{2010}-\x{2027}` +
	`\x{2030}-\x{2043}\x{2045}-\x{2051}\x{2053}-\x{205E}\x{207D}\x{207E}` +
	`\x{208D}\x{208E}\x{2329}\x{232A}\x{2768}-\x{2775}\x{27C5}\x{27C6}` +
	`\x{27E6}-\x{27EF}\x{2983}-\x{2998}\x{29D8}-\x{29DB}\x{29FC}\x{29FD}` +
	`\x{2CF9}-\x{2CFC}\x{2CFE}\x{2CFF}\x{2D70}\x{2E00}-\x{2E2E}` +
	`\x{2E30}-\x{2E3B}\x{3001}-\x{3003}\x{3008}-\x{3011}\x{3014}-\x{301F}` +
	`\x{3030}\x{303D}\x{30A0}\x{30FB}\x{A4FE}\x{A4FF}\x{A60D}-\x{A60F}` +
	`\x{A673}\x{A67E}\x{A6F2}-\x{A6F7}\x{A874}-\x{A877}\x{A8CE}\x{A8CF}` +
	`\x{A8F8}-\x{A8FA}\x{A92E}\x{A92F}\x{A95F}\x{A9C1}-\x{A9CD}\x{A9DE}` +
	`\x{A9DF}\x{AA5C}-\x{AA5F}\x{AADE}\x{AADF}\x{AAF0}\x{AAF1}\x{ABEB}` +
	`\x{FD3E}\x{FD3F}\x{FE10}-\x{FE19}\x{FE30}-\x{FE52}\x{FE54}-\x{FE61}` +
	`\x{FE63}\x{FE68}\x{FE6A}\x{FE6B}\x{FF01}-\x{FF03}\x{FF05}-\x{FF0A}` +
	`\x{FF0C}-\x{FF0F}\x{FF1A}\x{FF1B}\x{FF1F}\x{FF20}\x{FF3B}-\x{FF3D}` +
	`\x{FF3F}\x{FF5B}\x{FF5D}\x{FF5F}-\x{FF65}` +
	`]$`)

var multiSpace = regexp.MustCompile(` {2,}`)

// IsDelimiter reports whether r separates words for keyword isolation.
// Newline and space always do.
func IsDelimiter(r rune) bool {
	if r == '\n' || r == ' ' {
		return true
	}
	return delimiterClass.MatchString(string(r))
}

// collapseDelimiters turns newlines into spaces and squeezes runs of spaces.
func collapseDelimiters(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return multiSpace.ReplaceAllString(s, " ")
}

package narrator

import (
	"regexp"
	"strconv"
)

// The narration service embeds side effects in its prose as ad-hoc text
// markers. Parsing is isolated here; the rest of the system only ever
// sees typed directives and never touches the marker syntax.

// DirectiveKind discriminates parsed side-effect directives.
type DirectiveKind string

const (
	// DirectiveSkill raises a character skill to an absolute value.
	DirectiveSkill DirectiveKind = "skill"
	// DirectiveExtraTurn asks to hold the turn for the acting player.
	DirectiveExtraTurn DirectiveKind = "extra_turn"
)

// Directive is one side effect extracted from narration text.
type Directive struct {
	Kind  DirectiveKind
	Skill string
	Value int
}

var (
	skillMarkerRe     = regexp.MustCompile(`\[Skill (\w+) \+(\d+)\]`)
	extraTurnMarkerRe = regexp.MustCompile(`\[EXTRA TURN\]`)
)

// ExtractDirectives scans narration text for control markers. Malformed
// markers simply do not match; there is no error case. Markers are left
// in the text — display surfaces decide whether to scrub them.
func ExtractDirectives(text string) []Directive {
	var out []Directive
	for _, m := range skillMarkerRe.FindAllStringSubmatch(text, -1) {
		value, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, Directive{Kind: DirectiveSkill, Skill: m[1], Value: value})
	}
	if extraTurnMarkerRe.MatchString(text) {
		out = append(out, Directive{Kind: DirectiveExtraTurn})
	}
	return out
}

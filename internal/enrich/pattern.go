// Package enrich implements the deterministic pattern stage and the
// cheap-then-expensive external lookup waterfall, covering the common
// first/last-name local-part conventions (first.last, first.m.last,
// first_last, f.last, flast) and scoring how much a matched pattern is
// worth trusting on its own.
package enrich

import (
	"regexp"
	"strings"
)

// NamePattern names which local-part shape a candidate name was extracted
// from, surfaced for debugging and for the reason string on a Verdict.
type NamePattern string

const (
	PatternNone          NamePattern = "no_pattern"
	PatternFirstLast     NamePattern = "first.last"
	PatternFirstMiddleLast NamePattern = "first.m.last"
	PatternFirstUnderscoreLast NamePattern = "first_last"
	PatternFirstDashLast NamePattern = "first-last"
	PatternInitialDotLast NamePattern = "f.last"
	PatternInitialLast   NamePattern = "flast"
)

var (
	firstLastRe       = regexp.MustCompile(`^([a-z]{2,})\.([a-z]{2,})$`)
	firstMiddleLastRe = regexp.MustCompile(`^([a-z]{2,})\.([a-z])\.([a-z]{2,})$`)
	initialDotLastRe  = regexp.MustCompile(`^([a-z])\.([a-z]{2,})$`)
	initialLastRe     = regexp.MustCompile(`^([a-z])([a-z]{3,})$`)
)

// ExtractedName is a candidate (first, last) name pulled from a local part,
// with the confidence the pattern alone carries.
type ExtractedName struct {
	First      string
	Last       string
	Confidence float64
	Pattern    NamePattern
}

// ExtractName mirrors extract_name_from_email's pattern ladder exactly: try
// the most specific shape first, fall through to looser ones, and give up
// with zero confidence if nothing matches.
func ExtractName(local string) ExtractedName {
	local = strings.ToLower(local)

	if m := firstLastRe.FindStringSubmatch(local); m != nil {
		first, last := m[1], m[2]
		if len(first) >= 2 && len(first) <= 15 && len(last) >= 2 && len(last) <= 20 {
			return ExtractedName{capitalize(first), capitalize(last), 0.92, PatternFirstLast}
		}
	}

	if m := firstMiddleLastRe.FindStringSubmatch(local); m != nil {
		first, last := m[1], m[3]
		return ExtractedName{capitalize(first), capitalize(last), 0.88, PatternFirstMiddleLast}
	}

	for _, sep := range []string{"_", "-"} {
		if strings.Contains(local, sep) {
			parts := strings.Split(local, sep)
			if len(parts) == 2 && isAlphaInRange(parts[0], 2, 15) && isAlphaInRange(parts[1], 2, 15) {
				pattern := PatternFirstUnderscoreLast
				if sep == "-" {
					pattern = PatternFirstDashLast
				}
				return ExtractedName{capitalize(parts[0]), capitalize(parts[1]), 0.86, pattern}
			}
		}
	}

	if m := initialDotLastRe.FindStringSubmatch(local); m != nil {
		return ExtractedName{strings.ToUpper(m[1]), capitalize(m[2]), 0.78, PatternInitialDotLast}
	}

	if len(local) <= 10 {
		if m := initialLastRe.FindStringSubmatch(local); m != nil {
			return ExtractedName{strings.ToUpper(m[1]), capitalize(m[2]), 0.74, PatternInitialLast}
		}
	}

	return ExtractedName{Pattern: PatternNone}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isAlphaInRange(s string, min, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// PatternStatus is the status a pure-pattern scoring pass assigns before
// any enrichment provider is consulted.
type PatternStatus string

const (
	StatusValid PatternStatus = "valid"
	StatusRisky PatternStatus = "risky"
)

// PatternScore is the outcome of ScorePattern.
type PatternScore struct {
	Status     PatternStatus
	Confidence float64
	Reason     string
}

// ScorePattern scores a local part on pattern shape alone, without
// touching any external provider: role accounts are flagged risky
// outright, corporate domains get a confidence boost when combined with a
// decent name pattern, and otherwise a name pattern's own confidence
// decides valid vs. risky.
func ScorePattern(local string, role bool, corporatePrior float64, isCorporate bool) PatternScore {
	if role {
		return PatternScore{StatusRisky, 0.90, "role_account"}
	}

	name := ExtractName(local)

	if isCorporate && name.Confidence >= 0.70 {
		combined := (corporatePrior + name.Confidence) / 2
		return PatternScore{StatusValid, combined, "corporate_" + string(name.Pattern)}
	}

	if name.Confidence >= 0.88 {
		return PatternScore{StatusValid, name.Confidence, "strong_pattern_" + string(name.Pattern)}
	}

	if name.Confidence >= 0.70 {
		return PatternScore{StatusRisky, name.Confidence, "medium_pattern_" + string(name.Pattern)}
	}

	return PatternScore{StatusRisky, 0.55, "low_confidence_" + string(name.Pattern)}
}

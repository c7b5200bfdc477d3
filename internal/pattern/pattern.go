// Package pattern decides whether a bare file or directory name matches
// an exclusion rule. Rules are shell globs, or regular expressions tagged
// with a "regex:" prefix and matched from the start of the name.
package pattern

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/scandog/scandog/internal/logger"
)

// RegexPrefix tags a pattern as a regular expression instead of a glob.
const RegexPrefix = "regex:"

// Compiled regexes are memoized per distinct pattern string for the
// lifetime of the process; traversal re-evaluates the same pattern set
// against every name. A pattern that failed to compile is remembered as
// never-matching so the diagnostic is logged once, not per name.
var (
	mu       sync.Mutex
	compiled = make(map[string]*regexp.Regexp)
	invalid  = make(map[string]struct{})
)

// Matches reports whether name matches any pattern in order. An invalid
// regex logs a diagnostic and never matches; it does not abort the caller.
func Matches(name string, patterns []string) bool {
	for _, p := range patterns {
		if expr, ok := strings.CutPrefix(p, RegexPrefix); ok {
			re := compileRegex(expr)
			if re != nil && re.MatchString(name) {
				return true
			}
			continue
		}
		if matched, err := filepath.Match(p, name); err != nil {
			logger.Errorf("invalid glob pattern %q: %v", p, err)
		} else if matched {
			return true
		}
	}
	return false
}

// compileRegex returns the memoized compilation of expr, anchored at the
// start of the subject, or nil when expr does not compile.
func compileRegex(expr string) *regexp.Regexp {
	mu.Lock()
	defer mu.Unlock()

	if re, ok := compiled[expr]; ok {
		return re
	}
	if _, ok := invalid[expr]; ok {
		return nil
	}

	re, err := regexp.Compile("^(?:" + expr + ")")
	if err != nil {
		logger.Errorf("invalid regex pattern %q: %v", expr, err)
		invalid[expr] = struct{}{}
		return nil
	}
	compiled[expr] = re
	return re
}

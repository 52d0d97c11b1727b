package canonical

// Rule rewrites one wrapper convention into a plain compiler invocation.
// Rules are independent: new platforms register new entries without
// touching existing ones.
type Rule interface {
	// Matches reports whether the argument vector has this rule's wrapper
	// shape.
	Matches(args []string) bool
	// Unwrap splices in the real compiler path and native flags.
	Unwrap(args []string) ([]string, error)
}

type registration struct {
	platform  string // "any" or a GOOS value
	toolchain string
	rule      Rule
}

// registry holds unwrap rules in registration order. Platform-specific
// rules are consulted before "any" rules, so the generic driver rule acts
// as the fallback.
var registry []registration

// Register adds an unwrap rule for a (platform, toolchain) pair.
// platform is a GOOS value, or "any" for rules that apply everywhere.
func Register(platform, toolchain string, rule Rule) {
	registry = append(registry, registration{platform: platform, toolchain: toolchain, rule: rule})
}

// lookupRule finds the first registered rule matching args on the given
// host platform. The bool result is false when no rule recognizes the
// wrapper shape.
func lookupRule(platform string, args []string) (string, Rule, bool) {
	for _, reg := range registry {
		if reg.platform == platform && reg.rule.Matches(args) {
			return reg.toolchain, reg.rule, true
		}
	}
	for _, reg := range registry {
		if reg.platform == "any" && reg.rule.Matches(args) {
			return reg.toolchain, reg.rule, true
		}
	}
	return "", nil, false
}

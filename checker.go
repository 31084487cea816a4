package dorm

// Rule is a single named, pure predicate over a Catalog. Running the
// Checker means invoking every registered Rule and concatenating the
// Diagnostics it returns; this is the "checker as a fold" design (§9) and
// gives each rule an independent "it fires exactly here" unit test.
type Rule struct {
	ID          string
	Kind        InvariantKind
	Description string
	Check       func(*Catalog) []Diagnostic
}

// domainRules and designRules are populated by rules_domain.go and
// rules_design.go respectively, in the order of their init registrations.
var (
	domainRules []Rule
	designRules []Rule
)

func registerDomainRule(r Rule) {
	r.Kind = DomainInvariant
	domainRules = append(domainRules, r)
}

func registerDesignRule(r Rule) {
	r.Kind = DesignInvariant
	designRules = append(designRules, r)
}

// Option configures a Checker. Most callers need no options and should use
// Check directly; Options exist for tooling that wants to run a reduced
// rule set (e.g. design-only re-validation after a single Struct edit).
type Option func(*Checker)

// WithRules replaces the set of rules the Checker runs. Without this
// option a Checker runs every registered domain and design rule.
func WithRules(rules []Rule) Option {
	return func(c *Checker) { c.rules = rules }
}

// WithExtraRules appends additional rules (e.g. from a caller's own
// site-specific invariants) to the default rule set.
func WithExtraRules(rules ...Rule) Option {
	return func(c *Checker) { c.rules = append(c.rules, rules...) }
}

// Checker runs the invariant rules of §3 over a Catalog as a single,
// stateless fold; it never mutates the Catalog it checks.
type Checker struct {
	rules []Rule
}

// NewChecker constructs a Checker with the default rule set (every
// registered domain and design rule), modified by opts.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{}
	c.rules = make([]Rule, 0, len(domainRules)+len(designRules))
	c.rules = append(c.rules, domainRules...)
	c.rules = append(c.rules, designRules...)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run evaluates every rule against cat and returns the accumulated
// Diagnostics. All rules run regardless of earlier failures (§4.2: "Errors
// are not thrown one at a time").
func (c *Checker) Run(cat *Catalog) Diagnostics {
	var diags Diagnostics
	for _, rule := range c.rules {
		for _, d := range rule.Check(cat) {
			d.RuleID = rule.ID
			switch d.Severity {
			case SeverityWarning:
				diags.Warnings = append(diags.Warnings, d)
			default:
				diags.Errors = append(diags.Errors, d)
			}
		}
	}
	return diags
}

// Check runs the default Checker (every registered rule) against cat. It is
// the common-case entry point; construct a *Checker directly for a
// customized rule set.
func Check(cat *Catalog) Diagnostics {
	return NewChecker().Run(cat)
}

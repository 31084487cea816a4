package dorm

import "errors"

// Sentinel errors for the fixed set of kernel-level failure kinds (§7).
// Compilers wrap these with %w so callers can match with errors.Is while
// still getting a descriptive message.
var (
	// ErrParse is returned when a domain/design/query document cannot be
	// structurally parsed (malformed document, wrong shape).
	ErrParse = errors.New("dorm: parse error")

	// ErrUnknownName is returned by atoms_by_name / edges_by_name (and any
	// reference resolution built on them) when a name does not exist in
	// the catalog.
	ErrUnknownName = errors.New("dorm: unknown name")

	// ErrAmbiguousPath is returned by StructPath when more than one
	// distinct minimal path connects an element to its Struct's anchor.
	ErrAmbiguousPath = errors.New("dorm: ambiguous path")

	// ErrDisconnected is returned by the query translator when a pattern
	// class is contained in no Set, and by StructPath when an element has
	// no path to its anchor. The translator does not reject a pattern whose
	// classes are unconnected in the domain graph; it joins their tables
	// with CROSS JOIN and attaches a warning.
	ErrDisconnected = errors.New("dorm: disconnected pattern")

	// ErrEmptyExpansion is returned when generalization expansion of a
	// query pattern yields no surviving concrete branch.
	ErrEmptyExpansion = errors.New("dorm: empty generalization expansion")

	// ErrDanglingPredicate is returned when a filter predicate references
	// an attribute of a class absent from the query's pattern.
	ErrDanglingPredicate = errors.New("dorm: dangling predicate")

	// ErrSink is returned when the external database sink reports a
	// failure while executing a compiler-emitted statement.
	ErrSink = errors.New("dorm: sink error")

	// ErrCancelled is returned when a cooperative cancellation token fires
	// between emitted statements.
	ErrCancelled = errors.New("dorm: cancelled")

	// ErrInternalAssertion indicates a kernel invariant the implementation
	// itself is supposed to guarantee was violated; it signals a bug in
	// dorm, not bad input.
	ErrInternalAssertion = errors.New("dorm: internal assertion failed")

	// ErrMissingDataAnnotation names a source schema lacking the has_data
	// annotation. No function in this module returns it: PlanMigration and
	// Migrator.Apply neither record nor check such an annotation.
	ErrMissingDataAnnotation = errors.New("dorm: source schema missing has_data annotation")
)

// IsUnknownName reports whether err is or wraps ErrUnknownName.
func IsUnknownName(err error) bool { return errors.Is(err, ErrUnknownName) }

// IsCancelled reports whether err is or wraps ErrCancelled.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// IsSinkError reports whether err is or wraps ErrSink.
func IsSinkError(err error) bool { return errors.Is(err, ErrSink) }

// InvariantKind distinguishes the two invariant families of §3: rules over
// the domain atoms alone, and rules over how the design hyperedges realize
// that domain.
type InvariantKind int

const (
	// DomainInvariant rules are checked against Class/Attribute/
	// AssociationEnd/Association/Generalization atoms alone.
	DomainInvariant InvariantKind = iota
	// DesignInvariant rules additionally depend on Struct/Set hyperedges.
	DesignInvariant
)

func (k InvariantKind) String() string {
	if k == DesignInvariant {
		return "DesignInvariantViolation"
	}
	return "DomainInvariantViolation"
}

// CheckerError is a single structured checker violation: a rule id, a
// human-readable message, and the names of the atoms/edges responsible.
// It implements error so a *CheckerError can be returned or wrapped
// directly, and errors.As lets callers recover the structured fields.
type CheckerError struct {
	Kind           InvariantKind
	RuleID         string
	Message        string
	OffendingNames []string
}

// Error renders "<kind>[<rule-id>]: <message> (names...)".
func (e *CheckerError) Error() string {
	s := e.Kind.String() + "[" + e.RuleID + "]: " + e.Message
	if len(e.OffendingNames) > 0 {
		s += " ("
		for i, n := range e.OffendingNames {
			if i > 0 {
				s += ", "
			}
			s += n
		}
		s += ")"
	}
	return s
}

// Severity classifies a Diagnostic (§6).
type Severity int

const (
	// SeverityWarning diagnostics do not abort the current operation and
	// may be suppressed per-run.
	SeverityWarning Severity = iota
	// SeverityError diagnostics abort the current operation; the caller
	// retains whatever catalog/result it held before the call.
	SeverityError
	// SeverityInternal diagnostics indicate a kernel bug rather than bad
	// input.
	SeverityInternal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Diagnostic is one checker or compiler observation.
type Diagnostic struct {
	Severity       Severity
	RuleID         string
	Message        string
	OffendingNames []string
}

// Diagnostics accumulates errors and warnings across a single checker run
// or compiler invocation, keeping the two channels (§4.2, §6) distinct so
// warnings can be inspected or suppressed independently of errors.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// AddError appends an error-severity diagnostic.
func (d *Diagnostics) AddError(ruleID, message string, names ...string) {
	d.Errors = append(d.Errors, Diagnostic{Severity: SeverityError, RuleID: ruleID, Message: message, OffendingNames: names})
}

// AddWarning appends a warning-severity diagnostic.
func (d *Diagnostics) AddWarning(ruleID, message string, names ...string) {
	d.Warnings = append(d.Warnings, Diagnostic{Severity: SeverityWarning, RuleID: ruleID, Message: message, OffendingNames: names})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.Errors) > 0 }

// Merge appends another Diagnostics' errors and warnings onto d.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
}

package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // shared library loading
	PhaseLookup  Phase = "lookup"  // entry point resolution
	PhaseDevice  Phase = "device"  // wrapper and facade preconditions
	PhaseNative  Phase = "native"  // native call reported failure
	PhaseIO      Phase = "io"      // files, streams and device nodes
	PhaseParse   Phase = "parse"   // session file parsing
	PhaseConfig  Phase = "config"  // configuration and flags
	PhaseSession Phase = "session" // multi-device record/replay
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindMissingSymbol Kind = "missing_symbol"
	KindUnbound       Kind = "unbound"
	KindPrecondition  Kind = "precondition"
	KindNativeFailure Kind = "native_failure"
	KindNullPointer   Kind = "null_pointer"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidInput  Kind = "invalid_input"
	KindNotConfigured Kind = "not_configured"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindDuplicate     Kind = "duplicate"
	KindClosed        Kind = "closed"
	KindUnsupported   Kind = "unsupported"
)

// ErrUnbound matches any device-scoped call made without a bound device pointer.
var ErrUnbound = &Error{Phase: PhaseDevice, Kind: KindUnbound}

// ErrClosed matches operations attempted on a released library or facade.
var ErrClosed = &Error{Phase: PhaseDevice, Kind: KindClosed}

// Error is the structured error type used throughout the binding
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Path   string
	Detail string
	Line   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteByte(')')
	} else if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation or native entry point name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Path sets the file or device node involved
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Line sets the 1-based input line
func (b *Builder) Line(n int) *Builder {
	b.err.Line = n
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Is, As and Join forward to the standard library so callers need a single
// errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsUsage reports whether err is a caller precondition violation rather than
// a failure reported by the native library.
func IsUsage(err error) bool {
	var e *Error
	if !As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindUnbound, KindPrecondition, KindInvalidInput:
		return true
	}
	return false
}

// Convenience constructors for common error patterns

// Unbound creates the usage error for a device-scoped call made while no
// device pointer is held.
func Unbound(op string) *Error {
	return &Error{
		Phase:  PhaseDevice,
		Kind:   KindUnbound,
		Op:     op,
		Detail: "no device bound, call New first",
	}
}

// Precondition creates a usage error for a facade precondition
func Precondition(op, detail string) *Error {
	return &Error{
		Phase:  PhaseDevice,
		Kind:   KindPrecondition,
		Op:     op,
		Detail: detail,
	}
}

// Closed creates an error for use after release
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseDevice,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// NullPointer creates the error for a native constructor returning NULL
func NullPointer(op string) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindNullPointer,
		Op:     op,
		Detail: "native call returned NULL",
	}
}

// NativeStatus translates a failing native status code. Statuses below -1
// carry a negated errno, which becomes the cause.
func NativeStatus(op, path string, status int32) *Error {
	e := &Error{
		Phase:  PhaseNative,
		Kind:   KindNativeFailure,
		Op:     op,
		Path:   path,
		Value:  status,
		Detail: fmt.Sprintf("status %d", status),
	}
	if status < -1 {
		e.Cause = unix.Errno(-status)
	}
	return e
}

// IO wraps a file or device node failure
func IO(op, path string, cause error) *Error {
	return &Error{
		Phase: PhaseIO,
		Kind:  KindInvalidInput,
		Op:    op,
		Path:  path,
		Cause: cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotConfigured creates a configuration error for a missing setting
func NotConfigured(setting, hint string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindNotConfigured,
		Detail: fmt.Sprintf("%s not set: %s", setting, hint),
	}
}

// Load creates a library loading error
func Load(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		Path:   path,
		Detail: "cannot load shared library",
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error at the given line
func ParseFailed(line int, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Line:   line,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, what string, value, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("%s %d out of range (limit %d)", what, value, limit),
		Value:  value,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingSymbol represents a single unresolved entry point
type MissingSymbol struct {
	Library string // e.g., "libevemu.so.1"
	Name    string // e.g., "evemu_new"
}

// MissingSymbolsError is returned when a shared library lacks required entry points
type MissingSymbolsError struct {
	Symbols []MissingSymbol
}

// NewMissingSymbolsError creates an error for the given library and names
func NewMissingSymbolsError(library string, names []string) *MissingSymbolsError {
	result := &MissingSymbolsError{
		Symbols: make([]MissingSymbol, 0, len(names)),
	}
	for _, name := range names {
		result.Symbols = append(result.Symbols, MissingSymbol{
			Library: library,
			Name:    name,
		})
	}
	return result
}

// Add appends further missing names, typically from a second library
func (e *MissingSymbolsError) Add(library string, names ...string) {
	for _, name := range names {
		e.Symbols = append(e.Symbols, MissingSymbol{Library: library, Name: name})
	}
}

// Names returns the missing entry point names in sorted order
func (e *MissingSymbolsError) Names() []string {
	names := make([]string, 0, len(e.Symbols))
	for _, s := range e.Symbols {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[lookup] missing_symbol: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d entry point(s):\n", len(e.Symbols)))

	// Group by library for cleaner output
	byLib := make(map[string][]string)
	var libOrder []string
	for _, s := range e.Symbols {
		if _, exists := byLib[s.Library]; !exists {
			libOrder = append(libOrder, s.Library)
		}
		byLib[s.Library] = append(byLib[s.Library], s.Name)
	}

	for _, lib := range libOrder {
		b.WriteString("\n  ")
		b.WriteString(lib)
		b.WriteString(":\n")
		for _, name := range byLib[lib] {
			b.WriteString("    - ")
			b.WriteString(name)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	if _, ok := target.(*MissingSymbolsError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Phase == PhaseLookup && t.Kind == KindMissingSymbol
	}
	return false
}

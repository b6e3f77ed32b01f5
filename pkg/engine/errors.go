package engine

import (
	"errors"
	"fmt"

	"github.com/ezivnuska/pokertable/pkg/store"
)

// ErrContended is returned when an operation exhausted its retries against
// conflicting writers. It is transient; the caller may try again.
var ErrContended = errors.New("game is busy, retries exhausted")

// errNoEffect is returned by an operation closure to signal that the desired
// end-state already holds: the transaction succeeds without writing.
var errNoEffect = errors.New("no effect")

// RuleError is a business-rule rejection: out of turn, insufficient chips,
// not enough players. It is never retried and always surfaces its reason.
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string { return e.Reason }

func ruleErrorf(format string, args ...interface{}) error {
	return &RuleError{Reason: fmt.Sprintf(format, args...)}
}

// IsRuleError reports whether err is a business-rule rejection.
func IsRuleError(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}

// retryable classifies errors the exclusive-access loop may retry: the
// acquisition race and the optimistic version check. Everything else
// propagates immediately.
func retryable(err error) bool {
	return errors.Is(err, store.ErrProcessing) || errors.Is(err, store.ErrVersionConflict)
}

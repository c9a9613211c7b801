// Package validation implements the per-field request validation pipeline:
// each field carries an ordered list of checks that bail at the field's first
// failure, fields run independently, and a terminal aggregator resolves the
// combined outcome with 400-class failures dominating 404-class ones.
package validation

import (
	"context"
	"net/http"
	"sync"

	"github.com/trellis-commerce/storefront-api/internal/api/middleware"
	"github.com/trellis-commerce/storefront-api/internal/errors"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
)

type Severity int

const (
	SeverityBadInput Severity = iota // resolves to 400
	SeverityNotFound                 // resolves to 404
)

// Failure is a single tagged validation failure. Field is assigned by the
// chain from the field the check was registered under.
type Failure struct {
	Field    string
	Severity Severity
	Message  string
}

// BadInput builds a 400-class failure with a human-readable reason.
func BadInput(message string) *Failure {
	return &Failure{Severity: SeverityBadInput, Message: message}
}

// NotFound builds a 404-class failure; its message is fixed at aggregation.
func NotFound() *Failure {
	return &Failure{Severity: SeverityNotFound}
}

// Check inspects one aspect of a field. A nil Failure means the check passed.
// A non-nil error marks an internal fault (failed lookup), not a validation
// outcome. Checks must not mutate state.
type Check func(ctx context.Context) (*Failure, error)

type fieldChecks struct {
	name   string
	checks []Check
}

// Chain is an ordered set of per-field check lists.
type Chain struct {
	fields []fieldChecks
}

func NewChain() *Chain {
	return &Chain{}
}

// Field registers checks for a named field. Checks run in order and stop at
// the field's first failure.
func (c *Chain) Field(name string, checks ...Check) *Chain {
	c.fields = append(c.fields, fieldChecks{name: name, checks: checks})

	return c
}

// Result is the joined outcome of a chain run.
type Result struct {
	failures []Failure
	err      error
}

// Run executes every field's checks. Distinct fields run concurrently;
// Run returns only once all of them have finished.
func (c *Chain) Run(ctx context.Context) *Result {

	result := &Result{}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, field := range c.fields {
		wg.Add(1)

		go func(field fieldChecks) {
			defer wg.Done()

			for _, check := range field.checks {
				failure, err := check(ctx)

				if err != nil {
					mu.Lock()
					if result.err == nil {
						result.err = err
					}
					mu.Unlock()

					return
				}

				if failure != nil {
					failure.Field = field.name

					mu.Lock()
					result.failures = append(result.failures, *failure)
					mu.Unlock()

					return // bail: first failure ends this field
				}
			}
		}(field)
	}

	wg.Wait()

	return result
}

// Err reports an internal fault encountered by any check.
func (r *Result) Err() error {
	return r.err
}

func (r *Result) OK() bool {
	return r.err == nil && len(r.failures) == 0
}

// Resolve aggregates failures into an HTTP status and field map. Any
// 400-class failure makes the whole outcome a 400 carrying every 400-class
// failure; 404-class failures surface only when no 400s exist. A zero status
// means the request may proceed.
func (r *Result) Resolve() (int, map[string]string) {

	badInput := make(map[string]string)
	notFound := make(map[string]string)

	for _, f := range r.failures {
		switch f.Severity {
		case SeverityBadInput:
			badInput[f.Field] = f.Message
		case SeverityNotFound:
			notFound[f.Field] = "not found"
		}
	}

	if len(badInput) > 0 {
		return http.StatusBadRequest, badInput
	}

	if len(notFound) > 0 {
		return http.StatusNotFound, notFound
	}

	return 0, nil
}

// Middleware builds a route middleware that runs the chain produced for each
// request and only invokes next when the chain passes.
func Middleware(build func(r *http.Request) *Chain) func(next http.Handler) http.HandlerFunc {
	return func(next http.Handler) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {

			logger := middleware.LoggerFromContext(r.Context())

			result := build(r).Run(r.Context())

			if err := result.Err(); err != nil {
				logger.Error("Validation lookup failed", "error", err.Error())
				response.Error(w, errors.DatabaseError("validation lookup failed").WithError(err))

				return
			}

			if status, fields := result.Resolve(); status != 0 {
				logger.Warn("Request validation failed", "status", status)
				response.Fail(w, status, fields)

				return
			}

			next.ServeHTTP(w, r)
		}
	}
}

// Resolve writes the outcome of an already-run chain, returning true when the
// handler may proceed. Used for body-level chains run inside handlers.
func Resolve(w http.ResponseWriter, result *Result) bool {

	if err := result.Err(); err != nil {
		response.Error(w, errors.DatabaseError("validation lookup failed").WithError(err))

		return false
	}

	if status, fields := result.Resolve(); status != 0 {
		response.Fail(w, status, fields)

		return false
	}

	return true
}

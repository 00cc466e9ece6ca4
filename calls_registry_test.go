package promise

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// callsRegistry records the order in which handlers ran. It is not
// synchronized: register from loop tasks only, and assert once Run has
// returned. The loop makes that ordering deterministic.
func NewCallsRegistry() *callsRegistry {
	return &callsRegistry{}
}

type callsRegistry struct {
	registry []string
}

func (r *callsRegistry) Register(place string) {
	r.registry = append(r.registry, place)
}

func (r *callsRegistry) Summarize() string {
	return strings.Join(r.registry, "|")
}

func (r *callsRegistry) AssertCurrentCallsStackIs(t *testing.T, expectedRegistry string) {
	t.Helper()

	require.Equal(t, expectedRegistry, r.Summarize())
}

// silenceRejections drops the default unhandled-rejection diagnostic,
// for tests that reject on purpose and never attach a handler.
func silenceRejections(l *Loop) {
	l.OnUnhandledRejection(func(error) {})
}

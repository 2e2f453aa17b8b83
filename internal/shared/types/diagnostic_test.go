package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsDiagnostic(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, AsDiagnostic(nil, RuntimeError))
	})

	t.Run("wrapped diagnostic keeps kind", func(t *testing.T) {
		diag := NewDiagnostic(CompileError, "Unexpected \"<\"")
		err := fmt.Errorf("cycle 3: %w", diag)

		got := AsDiagnostic(err, RuntimeError)
		require.NotNil(t, got)
		assert.Equal(t, CompileError, got.Kind)
		assert.Equal(t, "Unexpected \"<\"", got.Message)
	})

	t.Run("plain error uses fallback", func(t *testing.T) {
		got := AsDiagnostic(errors.New("boom"), RuntimeError)
		require.NotNil(t, got)
		assert.Equal(t, RuntimeError, got.Kind)
		assert.Equal(t, "boom", got.Message)
	})
}

func TestViewConstructors(t *testing.T) {
	diag := Diagnosticf(RuntimeError, "no default export found")

	v := DiagnosticView(diag, 7)
	assert.Equal(t, StatusDiagnostic, v.Status)
	assert.Empty(t, v.HTML)
	assert.Equal(t, uint64(7), v.Generation)

	m := MountedView("<p>hi</p>", 8)
	assert.Equal(t, StatusMounted, m.Status)
	assert.Nil(t, m.Diagnostic)

	assert.Equal(t, StatusInitializing, InitializingView().Status)
	assert.Equal(t, "runtime_error: no default export found", diag.Error())
}

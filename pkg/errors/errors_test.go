package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeUnknownEntity, "no entity named %q", "sidebar")

	if err.Code != ErrCodeUnknownEntity {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnknownEntity)
	}

	if err.Message != `no entity named "sidebar"` {
		t.Errorf("Message = %v", err.Message)
	}

	expected := `UNKNOWN_ENTITY: no entity named "sidebar"`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("toml: line 3: expected '='")
	err := Wrap(ErrCodeInvalidScene, cause, "decode split.toml")

	if err.Code != ErrCodeInvalidScene {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidScene)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeDuplicateConstraint, "test"),
			code:     ErrCodeDuplicateConstraint,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeDuplicateConstraint, "test"),
			code:     ErrCodeUnknownConstraint,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInvalidScene, New(ErrCodeInvalidExpression, "inner"), "outer"),
			code:     ErrCodeInvalidScene,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeUnsatisfiableConstraint, "test"),
			expected: ErrCodeUnsatisfiableConstraint,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	fatal := map[Code]bool{
		ErrCodeUnknownEditVariable: true,
		ErrCodeInternalSolver:      true,
	}
	for _, code := range []Code{
		ErrCodeDuplicateConstraint,
		ErrCodeUnsatisfiableConstraint,
		ErrCodeUnknownConstraint,
		ErrCodeUnknownEditVariable,
		ErrCodeInternalSolver,
		ErrCodeInvalidScene,
	} {
		if got := IsFatal(code); got != fatal[code] {
			t.Errorf("IsFatal(%s) = %v, want %v", code, got, fatal[code])
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPositionError(t *testing.T) {
	err := &PositionError{Expr: "parent.widht", Offset: 7, Reason: "unknown attribute"}
	expected := `unknown attribute at offset 7 in "parent.widht"`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
	if err.Code() != ErrCodeInvalidExpression {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeInvalidExpression)
	}

	wrapped := Wrap(ErrCodeInvalidExpression, err, "constraint 2 of sidebar")
	var pe *PositionError
	if !errors.As(wrapped, &pe) || pe.Offset != 7 {
		t.Errorf("errors.As() did not recover PositionError from %v", wrapped)
	}
}

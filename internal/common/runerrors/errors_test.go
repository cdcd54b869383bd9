package runerrors

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	base := errors.New("connection refused")

	tests := map[string]struct {
		err             error
		wantFatal       bool
		wantRecoverable bool
	}{
		"nil":                       {nil, false, false},
		"plain":                     {base, false, false},
		"fatal":                     {Fatal(base), true, false},
		"recoverable":               {Recoverable(base), false, true},
		"wrapped fatal":             {errors.WithMessage(Fatal(base), "connecting"), true, false},
		"wrapped recoverable":       {errors.Wrap(Recoverable(base), "query"), false, true},
		"fatal wraps recoverable":   {Fatal(Recoverable(base)), true, false},
		"recoverable in multierror": {multierror.Append(nil, Recoverable(base)), false, true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.wantFatal, IsFatal(tc.err))
			assert.Equal(t, tc.wantRecoverable, IsRecoverable(tc.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Fatal(nil))
	assert.NoError(t, Recoverable(nil))
}

func TestUnwrapKeepsCause(t *testing.T) {
	base := errors.New("boom")
	assert.True(t, errors.Is(Fatal(base), base))
	assert.Equal(t, base, errors.Cause(Recoverable(base)))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `column "email" does not exist`, (&ErrNotFound{Type: "column", Value: "email"}).Error())
	assert.Equal(t, `"email" does not exist; gone`, (&ErrNotFound{Value: "email", Message: "gone"}).Error())
	assert.Equal(t, `value "oracle" is invalid for field "database.type"`, (&ErrInvalidArgument{Name: "database.type", Value: "oracle"}).Error())
	assert.Equal(t, "mysql does not support renaming indices", (&ErrNotSupported{Dialect: "mysql", Action: "renaming indices"}).Error())
	assert.True(t, IsNotFound(errors.WithStack(&ErrNotFound{})))
	assert.True(t, IsNotSupported(errors.WithStack(&ErrNotSupported{})))
}

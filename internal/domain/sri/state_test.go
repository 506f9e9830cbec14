package sri_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

func TestCanTransition_CaminoFeliz(t *testing.T) {
	path := []sri.State{
		sri.StateDraft, sri.StateBuilt, sri.StateSigned, sri.StateSchemaValid,
		sri.StateSubmitted, sri.StatePending, sri.StateAuthorized,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, sri.CanTransition(path[i], path[i+1]), "%s → %s", path[i], path[i+1])
	}
}

func TestCanTransition_NoSaltaEstados(t *testing.T) {
	assert.False(t, sri.CanTransition(sri.StateBuilt, sri.StateSubmitted))
	assert.False(t, sri.CanTransition(sri.StateSigned, sri.StateSubmitted))
	assert.False(t, sri.CanTransition(sri.StateBuilt, sri.StateAuthorized))
	assert.False(t, sri.CanTransition(sri.StateSchemaValid, sri.StateSigned))
}

func TestCanTransition_TerminalesSinSalida(t *testing.T) {
	all := []sri.State{
		sri.StateDraft, sri.StateBuilt, sri.StateSigned, sri.StateSchemaValid,
		sri.StateSubmitted, sri.StatePending, sri.StateAuthorized, sri.StateRejected, sri.StateFailed,
	}
	for _, term := range []sri.State{sri.StateAuthorized, sri.StateRejected, sri.StateFailed} {
		assert.True(t, term.IsTerminal())
		for _, to := range all {
			assert.False(t, sri.CanTransition(term, to), "%s → %s", term, to)
		}
	}
	assert.False(t, sri.StatePending.IsTerminal())
}

func TestReached(t *testing.T) {
	assert.True(t, sri.StateSchemaValid.Reached(sri.StateSigned))
	assert.True(t, sri.StateSigned.Reached(sri.StateSigned))
	assert.False(t, sri.StateBuilt.Reached(sri.StateSigned))
	assert.False(t, sri.StateRejected.Reached(sri.StateSigned))
}

func TestKindOf(t *testing.T) {
	netErr := &sri.NetworkError{Op: "recepción", Cause: errors.New("connection refused")}
	cases := []struct {
		name string
		err  error
		want sri.ErrorKind
	}{
		{"nil", nil, sri.KindNone},
		{"validación", &sri.ValidationError{Message: "cvc-complex-type"}, sri.KindValidation},
		{"firma", &sri.SigningError{Reason: "contraseña incorrecta"}, sri.KindSigning},
		{"rechazo", &sri.AuthorityRejection{Status: "DEVUELTA", Message: "x"}, sri.KindAuthorityRejection},
		{"red", netErr, sri.KindNetwork},
		{"red envuelta", fmt.Errorf("orquestador: %w", netErr), sri.KindNetwork},
		{"procesando", sri.ErrStillProcessing, sri.KindStillProcessing},
		{"agotado", &sri.RetryBudgetExhausted{Stage: "sri.submit", Attempts: 3, Last: netErr}, sri.KindRetryBudgetExhausted},
		{"desconocido", errors.New("boom"), sri.KindNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sri.KindOf(tc.err))
		})
	}
}

func TestErrorKind_Retryable(t *testing.T) {
	assert.True(t, sri.KindNetwork.Retryable())
	assert.True(t, sri.KindStillProcessing.Retryable())
	assert.False(t, sri.KindValidation.Retryable())
	assert.False(t, sri.KindSigning.Retryable())
	assert.False(t, sri.KindAuthorityRejection.Retryable())
	assert.False(t, sri.KindRetryBudgetExhausted.Retryable())
}

func TestOutcome_Message(t *testing.T) {
	o := sri.Fail(&sri.ValidationError{Message: "Element 'ruc': not valid"})
	assert.Equal(t, sri.KindValidation, o.Kind)
	assert.Equal(t, "Element 'ruc': not valid", o.Message())

	o = sri.Fail(&sri.AuthorityRejection{Status: "DEVUELTA", Message: "43 - CLAVE ACCESO REGISTRADA"})
	assert.Equal(t, "43 - CLAVE ACCESO REGISTRADA", o.Message())

	ok := sri.Ok(sri.StateSubmitted)
	assert.Equal(t, sri.KindNone, ok.Kind)
	assert.Empty(t, ok.Message())
	assert.Equal(t, time.Duration(0), ok.Delay)
}

func TestJoinMessages(t *testing.T) {
	msgs := []sri.Message{
		{ID: "35", Text: "ARCHIVO NO CUMPLE ESTRUCTURA XML", AdditionalInfo: "secuencial"},
		{ID: "43", Text: "CLAVE ACCESO REGISTRADA"},
	}
	assert.Equal(t, "35 - ARCHIVO NO CUMPLE ESTRUCTURA XML: secuencial; 43 - CLAVE ACCESO REGISTRADA", sri.JoinMessages(msgs))
}

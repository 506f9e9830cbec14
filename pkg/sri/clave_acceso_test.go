package sri_test

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vectores calculados a mano con el algoritmo módulo 11 (pesos 2..7 desde la
// derecha). Emisor 1790000000001, establecimiento 001, punto 001, pruebas.
// ──────────────────────────────────────────────────────────────────────────────

func baseInput(seq uint64) sri.AccessKeyInput {
	return sri.AccessKeyInput{
		Date:          time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC),
		DocType:       sri.DocTypeFactura,
		RUC:           "1790000000001",
		Environment:   sri.EnvironmentTest,
		Establishment: "001",
		EmissionPoint: "001",
		Sequence:      sri.FormatSequence(seq),
		NumericCode:   sri.DefaultNumericCode,
		EmissionType:  sri.EmissionTypeNormal,
	}
}

func TestGenerateAccessKey_EscenarioA(t *testing.T) {
	key, err := sri.GenerateAccessKey(baseInput(1))
	require.NoError(t, err)

	assert.Len(t, key, sri.AccessKeyLength)
	assert.Equal(t, "1503202501179000000000110010010000000011234567815", key)
	assert.NoError(t, sri.ValidateAccessKey(key))
}

func TestGenerateAccessKey_MapeoResultados11y10(t *testing.T) {
	// secuencial 2 → 11 - (suma % 11) = 11 → dígito 0
	key, err := sri.GenerateAccessKey(baseInput(2))
	require.NoError(t, err)
	assert.Equal(t, byte('0'), key[48], "resultado 11 debe mapear a 0")

	// secuencial 11 → resultado 10 → dígito 1
	key, err = sri.GenerateAccessKey(baseInput(11))
	require.NoError(t, err)
	assert.Equal(t, byte('1'), key[48], "resultado 10 debe mapear a 1")
}

func TestGenerateAccessKey_Deterministica(t *testing.T) {
	in := baseInput(12345)
	first, err := sri.GenerateAccessKey(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := sri.GenerateAccessKey(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGenerateAccessKey_DigitoConsistente(t *testing.T) {
	for seq := uint64(1); seq <= 200; seq++ {
		key, err := sri.GenerateAccessKey(baseInput(seq))
		require.NoError(t, err)
		require.Len(t, key, sri.AccessKeyLength)

		dv, err := sri.CheckDigit(key[:48])
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(dv), key[48:], "secuencial %d", seq)
	}
}

func TestGenerateAccessKey_CamposInvalidos(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*sri.AccessKeyInput)
		field  string
	}{
		{"ruc corto", func(in *sri.AccessKeyInput) { in.RUC = "179000000001" }, "ruc"},
		{"ruc con letras", func(in *sri.AccessKeyInput) { in.RUC = "17900000000A1" }, "ruc"},
		{"estab de 2", func(in *sri.AccessKeyInput) { in.Establishment = "01" }, "estab"},
		{"secuencial sin padding", func(in *sri.AccessKeyInput) { in.Sequence = "1" }, "secuencial"},
		{"codigo numerico", func(in *sri.AccessKeyInput) { in.NumericCode = "1234567" }, "codigoNumerico"},
		{"ambiente", func(in *sri.AccessKeyInput) { in.Environment = "" }, "ambiente"},
		{"fecha vacia", func(in *sri.AccessKeyInput) { in.Date = time.Time{} }, "fecha"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput(1)
			tc.mutate(&in)
			_, err := sri.GenerateAccessKey(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, sri.ErrInvalidInput))

			var iie *sri.InvalidInputError
			require.ErrorAs(t, err, &iie)
			assert.Equal(t, tc.field, iie.Field)
		})
	}
}

func TestValidateAccessKey(t *testing.T) {
	key, err := sri.GenerateAccessKey(baseInput(7))
	require.NoError(t, err)

	assert.NoError(t, sri.ValidateAccessKey(key))
	assert.Error(t, sri.ValidateAccessKey(key[:48]), "longitud 48")

	tampered := []byte(key)
	tampered[48] = '0' + (tampered[48]-'0'+1)%10
	assert.Error(t, sri.ValidateAccessKey(string(tampered)), "dígito alterado")

	withLetter := key[:48] + "X"
	assert.Error(t, sri.ValidateAccessKey(withLetter))
}

func TestParseAccessKey(t *testing.T) {
	key, err := sri.GenerateAccessKey(baseInput(1))
	require.NoError(t, err)

	in, err := sri.ParseAccessKey(key)
	require.NoError(t, err)
	want := baseInput(1)
	want.Date = time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, in)
	assert.Equal(t, "001-001-000000001", in.DocumentNumber())

	_, err = sri.ParseAccessKey(key[:48] + "0")
	assert.ErrorIs(t, err, sri.ErrInvalidInput)
}

func TestFormatSequence(t *testing.T) {
	assert.Equal(t, "000000001", sri.FormatSequence(1))
	assert.Equal(t, "123456789", sri.FormatSequence(123456789))
	assert.Equal(t, "001", sri.FormatCode(1))
}

package decode

import (
	"testing"

	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDecodeNumericWithScale(t *testing.T) {
	// base64 of bytes 0x01 0x7D = 381, scale 2 -> "3.81"
	lit, err := Decode(Input{
		Value:    model.Value{RawValue: "AX0=", Scale: 2},
		DestKind: KindNumeric,
	})
	require.NoError(t, err)
	require.Equal(t, "3.81", lit)
}

func TestDecodeTimestampMilliseconds(t *testing.T) {
	lit, err := Decode(Input{
		Value: model.Value{
			RawValue: "1707000000000",
			TimeRep:  model.TimeTimestamp,
			Typemod:  3,
		},
		DestKind:    KindTimestamp,
		QuoteForSQL: true,
	})
	require.NoError(t, err)
	require.Equal(t, "'2024-02-03T23:00:00.000000'", lit)
}

func TestDecodeNullCaseInsensitive(t *testing.T) {
	lit, err := Decode(Input{Value: model.Value{RawValue: "null"}, DestKind: KindText})
	require.NoError(t, err)
	require.Equal(t, "NULL", lit)

	lit, err = Decode(Input{Value: model.Value{RawValue: nil}, DestKind: KindInteger})
	require.NoError(t, err)
	require.Equal(t, "NULL", lit)
}

func TestDecodeBitWidthOne(t *testing.T) {
	// A single-bit value of 1, typemod 1.
	lit, err := Decode(Input{
		Value:       model.Value{RawValue: "AQ==", Typemod: 1},
		DestKind:    KindBit,
		QuoteForSQL: true,
	})
	require.NoError(t, err)
	require.Equal(t, "b'1'", lit)
}

func TestDecodeByteaQuoted(t *testing.T) {
	lit, err := Decode(Input{
		Value:       model.Value{RawValue: "q80="}, // 0xAB 0xCD
		DestKind:    KindBytea,
		QuoteForSQL: true,
	})
	require.NoError(t, err)
	require.Equal(t, "'\\xABCD'", lit)
}

func TestDecodeMoneyDefaultScale(t *testing.T) {
	// base64 of bytes representing 12345 with no explicit scale: Money
	// defaults to scale 4 (spec §4.A boundary case).
	lit, err := Decode(Input{
		Value:    model.Value{RawValue: "MDk=", Scale: 0},
		DestKind: KindMoney,
	})
	require.NoError(t, err)
	require.Equal(t, "1.2345", lit)
}

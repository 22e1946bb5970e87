// Package decode implements the Value Decoder (spec §4.A): it turns one
// source-encoded column value into either a quoted SQL literal or a raw
// tuple field, following the base64/scale/time-representation rules the
// source producer encodes values with.
package decode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/hornetlabs/synchdb/internal/model"
)

// DestKind is the coarse destination-type family the decoder switches
// on; internal/catalog resolves a column's OID to one of these.
type DestKind string

const (
	KindInteger  DestKind = "integer"
	KindFloat    DestKind = "float"
	KindNumeric  DestKind = "numeric"
	KindMoney    DestKind = "money"
	KindText     DestKind = "text"
	KindBit      DestKind = "bit"
	KindVarbit   DestKind = "varbit"
	KindBytea    DestKind = "bytea"
	KindDate     DestKind = "date"
	KindTimestamp DestKind = "timestamp"
	KindTime     DestKind = "time"
	KindUnknown  DestKind = "unknown"
)

// Input is everything the decoder needs to produce one output value.
type Input struct {
	Value       model.Value
	DestKind    DestKind
	QuoteForSQL bool
}

// Decode converts one value per the rules of spec §4.A. The returned
// string is a literal (quoted if in.QuoteForSQL) or tuple field text
// suitable for handing to destination driver parameter binding.
func Decode(in Input) (string, error) {
	raw, isNull := normalizeNull(in.Value.RawValue)
	if isNull {
		return "NULL", nil
	}

	switch in.DestKind {
	case KindInteger, KindFloat:
		return passthroughNumeric(raw), nil

	case KindNumeric, KindMoney:
		return decodeNumeric(in, raw)

	case KindText, KindUnknown:
		s := fmt.Sprintf("%v", raw)
		if in.QuoteForSQL {
			return quoteSQL(s), nil
		}
		return s, nil

	case KindBit, KindVarbit:
		return decodeBits(in, raw)

	case KindBytea:
		return decodeBytea(in, raw)

	case KindDate:
		return decodeDate(in, raw)

	case KindTimestamp:
		return decodeTimestamp(in, raw)

	case KindTime:
		return decodeTime(in, raw)

	default:
		s := fmt.Sprintf("%v", raw)
		if in.QuoteForSQL {
			return quoteSQL(s), nil
		}
		return s, nil
	}
}

// normalizeNull implements the spec's case-insensitive NULL literal
// rule: the string "NULL" (any case) or a Go nil both mean "no value".
func normalizeNull(raw interface{}) (interface{}, bool) {
	if raw == nil {
		return nil, true
	}
	if s, ok := raw.(string); ok && strings.EqualFold(s, "NULL") {
		return nil, true
	}
	return raw, false
}

func passthroughNumeric(raw interface{}) string {
	return fmt.Sprintf("%v", raw)
}

func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// decodeNumeric implements the base64 big-endian two's-complement
// integer + scale rule shared by Numeric and Money destinations. Money
// with no explicit scale defaults to scale 4 (spec §4.A boundary case).
func decodeNumeric(in Input, raw interface{}) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", errors.New("decode_numeric: raw_value is not a base64 string")
	}

	scale := in.Value.Scale
	if in.DestKind == KindMoney && in.Value.Scale == 0 {
		scale = 4
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode_numeric: %w", err)
	}
	if len(b) == 0 || len(b) > 16 {
		return "", fmt.Errorf("decode_numeric: unexpected byte length %d for numeric", len(b))
	}

	n := bigEndianTwosComplement(b)
	literal := placeDecimalPoint(n, scale)

	if in.QuoteForSQL {
		return literal, nil // numeric literals are not single-quoted
	}
	return literal, nil
}

// bigEndianTwosComplement decodes a big-endian two's-complement byte
// slice of 1-16 bytes into a signed big.Int.
func bigEndianTwosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		// Negative: n - 2^(8*len(b))
		max := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		n.Sub(n, max)
	}
	return n
}

// placeDecimalPoint inserts the decimal point scale digits from the
// right, left-padding with zeroes if the integer has fewer digits than
// scale requires.
func placeDecimalPoint(n *big.Int, scale int) string {
	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)
	digits := abs.String()

	if scale <= 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	for len(digits) <= scale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-scale]
	fracPart := digits[len(digits)-scale:]
	out := intPart + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// decodeBits implements the Bit/Varbit rule: base64 -> bytes -> reverse
// to little-endian bit order -> left-zero-padded binary string of at
// least typemod digits.
func decodeBits(in Input, raw interface{}) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", errors.New("decode_bits: raw_value is not a base64 string")
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode_bits: %w", err)
	}

	// Reverse byte order (the wire encodes bits little-endian-by-byte).
	reversed := make([]byte, len(b))
	for i, v := range b {
		reversed[len(b)-1-i] = v
	}

	var sb strings.Builder
	for _, byt := range reversed {
		sb.WriteString(fmt.Sprintf("%08b", byt))
	}
	bits := sb.String()

	// Trim to the significant bits, then left-pad to typemod.
	bits = strings.TrimLeft(bits, "0")
	if bits == "" {
		bits = "0"
	}
	for len(bits) < in.Value.Typemod {
		bits = "0" + bits
	}

	if in.QuoteForSQL {
		return "b'" + bits + "'", nil
	}
	return bits, nil
}

// decodeBytea implements the Bytea rule: base64 -> binary -> uppercase
// hex-escaped string when quoting.
func decodeBytea(in Input, raw interface{}) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", errors.New("decode_bytea: raw_value is not a base64 string")
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode_bytea: %w", err)
	}

	hex := strings.ToUpper(fmt.Sprintf("%x", b))
	if in.QuoteForSQL {
		return fmt.Sprintf("'\\x%s'", hex), nil
	}
	return hex, nil
}

// epochUnitsToNanos converts a numeric raw_value to nanoseconds since
// the Unix epoch according to TimeRep. time_rep = Undef is a fatal
// value-decode error per spec §4.A.
func epochUnitsToNanos(rep model.TimeRep, raw interface{}) (int64, error) {
	v, err := toInt64(raw)
	if err != nil {
		return 0, err
	}
	switch rep {
	case model.TimeDate:
		return v * int64(24*time.Hour), nil
	case model.TimeTimestamp:
		return v * int64(time.Millisecond), nil
	case model.TimeMicroTimestamp, model.TimeMicroTime:
		return v * int64(time.Microsecond), nil
	case model.TimeNanoTimestamp, model.TimeNanoTime:
		return v, nil
	case model.TimeUndef:
		return 0, errors.New("decode_time: time_rep is undefined")
	default:
		return 0, fmt.Errorf("decode_time: unsupported time_rep %q", rep)
	}
}

func toInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse_int: %w", err)
		}
		return n, nil
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("parse_int: unsupported numeric type %T", raw)
	}
}

func decodeDate(in Input, raw interface{}) (string, error) {
	if in.Value.TimeRep == model.TimeUndef {
		return "", errors.New("decode_date: time_rep is undefined")
	}
	nanos, err := epochUnitsToNanos(in.Value.TimeRep, raw)
	if err != nil {
		return "", err
	}
	t := time.Unix(0, nanos).UTC()
	s := t.Format("2006-01-02")
	if in.QuoteForSQL {
		return quoteSQL(s), nil
	}
	return s, nil
}

func decodeTimestamp(in Input, raw interface{}) (string, error) {
	if in.Value.TimeRep == model.TimeZonedTimestamp {
		// Already a string; pass through.
		s := fmt.Sprintf("%v", raw)
		if in.QuoteForSQL {
			return quoteSQL(s), nil
		}
		return s, nil
	}

	nanos, err := epochUnitsToNanos(in.Value.TimeRep, raw)
	if err != nil {
		return "", err
	}
	t := time.Unix(0, nanos).UTC()

	var s string
	if in.Value.Typemod > 0 {
		s = t.Format("2006-01-02T15:04:05.000000")
	} else {
		s = t.Format("2006-01-02T15:04:05")
	}
	if in.QuoteForSQL {
		return quoteSQL(s), nil
	}
	return s, nil
}

func decodeTime(in Input, raw interface{}) (string, error) {
	if in.Value.TimeRep == model.TimeUndef {
		return "", errors.New("decode_time: time_rep is undefined")
	}
	nanos, err := epochUnitsToNanos(in.Value.TimeRep, raw)
	if err != nil {
		return "", err
	}
	d := time.Duration(nanos)
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int(d / time.Second)
	d -= time.Duration(seconds) * time.Second
	micros := int(d / time.Microsecond)

	s := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if in.Value.Typemod > 0 {
		s += fmt.Sprintf(".%06d", micros)
	}
	if in.QuoteForSQL {
		return quoteSQL(s), nil
	}
	return s, nil
}

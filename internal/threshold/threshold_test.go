package threshold

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input  string
		amount float64
		unit   Unit
	}{
		{"200 MB", 200, UnitMB},
		{"200MB", 200, UnitMB},
		{"20%", 20, UnitPercent},
		{"20 %", 20, UnitPercent},
		{"1.5tb", 1.5, UnitTB},
		{"512kb", 512, UnitKB},
		{"10Gb", 10, UnitGB},
		{"0GB", 0, UnitGB},
		{"  80%  ", 80, UnitPercent},
		{".5GB", 0.5, UnitGB},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, got.Amount)
			assert.Equal(t, tt.unit, got.Unit)
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare number", "100"},
		{"bare decimal", "12.5"},
		{"empty", ""},
		{"unit only", "MB"},
		{"two decimal points", "1.2.3MB"},
		{"unknown unit", "20XB"},
		{"single letter unit", "5K"},
		{"bytes unit", "5B"},
		{"negative", "-5GB"},
		{"trailing garbage", "5GBs"},
		{"digits after unit", "5GB5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.input, perr.Limit)
		})
	}
}

func TestParseMissingUnitReason(t *testing.T) {
	_, err := Parse("100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing unit")

	_, err = Parse("100QQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unrecognized unit "QQ"`)
}

func TestThresholdString(t *testing.T) {
	assert.Equal(t, "20%", MustParse("20 %").String())
	assert.Equal(t, "1.5TB", MustParse("1.5tb").String())
	assert.Equal(t, "200MB", MustParse("200MB").String())
}

func TestUnitByteUnit(t *testing.T) {
	_, ok := UnitPercent.ByteUnit()
	assert.False(t, ok, "percent must not map to a byte unit")

	bu, ok := UnitGB.ByteUnit()
	require.True(t, ok)
	assert.Equal(t, GB, bu)
}

func TestBytesPerUnit(t *testing.T) {
	units := []ByteUnit{KB, MB, GB, TB}
	want := uint64(1)
	var prev uint64
	for _, u := range units {
		want *= 1024
		got := BytesPerUnit(u)
		assert.Equal(t, want, got, "BytesPerUnit(%s)", u)
		assert.Greater(t, got, prev)
		prev = got
	}
}

func TestToMB(t *testing.T) {
	assert.Equal(t, 1.0, ToMB(1024*1024))
	assert.Equal(t, 0.5, ToMB(512*1024))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("100") })
}

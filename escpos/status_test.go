package escpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStatusOnline(t *testing.T) {
	status, ok := DecodeStatus([StatusReplyLen]byte{0x12, 0x12, 0x12, 0x12})
	require.True(t, ok)
	assert.True(t, status.IsOnline)
	assert.Equal(t, PaperAdequate, status.PaperStatus)
	assert.Nil(t, status.OfflineCause)
}

func TestDecodeStatusTemplateViolation(t *testing.T) {
	// Flipping a fixed marker bit in any position makes the whole reply
	// indeterminate.
	for pos := 0; pos < StatusReplyLen; pos++ {
		for _, bad := range []byte{0x00, 0x02, 0x13, 0x92, 0xFF} {
			raw := [StatusReplyLen]byte{0x12, 0x12, 0x12, 0x12}
			raw[pos] = bad

			status, ok := DecodeStatus(raw)
			assert.False(t, ok, "byte %#02x at position %d must not decode", bad, pos)
			assert.Nil(t, status)
		}
	}
}

func TestDecodeStatusOfflineCoverOpen(t *testing.T) {
	status, ok := DecodeStatus([StatusReplyLen]byte{0x1A, 0x16, 0x12, 0x12})
	require.True(t, ok)
	assert.False(t, status.IsOnline)
	require.NotNil(t, status.OfflineCause)
	assert.True(t, status.OfflineCause.IsCoverOpen)
	assert.False(t, status.OfflineCause.IsPaperEmpty)
	assert.Nil(t, status.OfflineCause.Err)
}

func TestDecodeStatusFatalError(t *testing.T) {
	// offline byte 0x52 sets the error bit; error byte 0x32 sets only the
	// fatal bit
	status, ok := DecodeStatus([StatusReplyLen]byte{0x1A, 0x52, 0x32, 0x12})
	require.True(t, ok)
	require.NotNil(t, status.OfflineCause)
	require.NotNil(t, status.OfflineCause.Err)
	assert.True(t, status.OfflineCause.Err.IsFatalError)
	assert.False(t, status.OfflineCause.Err.IsCutterError)
	assert.False(t, status.OfflineCause.Err.IsRecoverableError)
}

func TestDecodeStatusErrorBitsIndependent(t *testing.T) {
	// cutter + recoverable set, fatal clear
	status, ok := DecodeStatus([StatusReplyLen]byte{0x1A, 0x52, 0x5A, 0x12})
	require.True(t, ok)
	require.NotNil(t, status.OfflineCause.Err)
	assert.True(t, status.OfflineCause.Err.IsCutterError)
	assert.True(t, status.OfflineCause.Err.IsRecoverableError)
	assert.False(t, status.OfflineCause.Err.IsFatalError)
}

func TestDecodeStatusErrorByteIgnoredWhenErrorBitClear(t *testing.T) {
	// error-cause byte reports a cutter error but the offline byte does not
	// flag an error condition
	status, ok := DecodeStatus([StatusReplyLen]byte{0x1A, 0x16, 0x1A, 0x12})
	require.True(t, ok)
	require.NotNil(t, status.OfflineCause)
	assert.Nil(t, status.OfflineCause.Err)
}

func TestDecodeStatusPaperPriority(t *testing.T) {
	testCases := []struct {
		name      string
		paperByte byte
		want      PaperStatus
	}{
		{"Adequate", 0x12, PaperAdequate},
		{"NearEnd", 0x1E, PaperNearEnd},
		{"NotPresent", 0x72, PaperNotPresent},
		{"EndSensorWinsOverNearEnd", 0x7E, PaperNotPresent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, ok := DecodeStatus([StatusReplyLen]byte{0x12, 0x12, 0x12, tc.paperByte})
			require.True(t, ok)
			assert.Equal(t, tc.want, status.PaperStatus)
		})
	}
}

func TestDecodeStatusOfflinePaperEmpty(t *testing.T) {
	status, ok := DecodeStatus([StatusReplyLen]byte{0x1A, 0x32, 0x12, 0x72})
	require.True(t, ok)
	require.NotNil(t, status.OfflineCause)
	assert.True(t, status.OfflineCause.IsPaperEmpty)
	assert.False(t, status.OfflineCause.IsCoverOpen)
	assert.Equal(t, PaperNotPresent, status.PaperStatus)
}

func TestPrinterStatusString(t *testing.T) {
	online, ok := DecodeStatus([StatusReplyLen]byte{0x12, 0x12, 0x12, 0x12})
	require.True(t, ok)
	assert.Contains(t, online.String(), "ONLINE")
	assert.Contains(t, online.String(), "OK")
	assert.NotContains(t, online.String(), "Issues")

	offline, ok := DecodeStatus([StatusReplyLen]byte{0x1A, 0x56, 0x3A, 0x72})
	require.True(t, ok)
	rendered := offline.String()
	assert.Contains(t, rendered, "OFFLINE")
	assert.Contains(t, rendered, "EMPTY")
	assert.Contains(t, rendered, "cover-open")
	assert.Contains(t, rendered, "cutter-error")
	assert.Contains(t, rendered, "fatal-error")
}

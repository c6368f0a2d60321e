package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixxel-company-limited/escpos-usb-printer/escpos"
)

func TestCompilePlainParagraph(t *testing.T) {
	out, err := Compile([]byte("hello printer"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello printer\n\n"), out)
}

func TestCompileHeadingDepth1(t *testing.T) {
	out, err := Compile([]byte("# Receipt"))
	require.NoError(t, err)

	var want []byte
	want = append(want, escpos.CharSize(1, 1)...)
	want = append(want, "Receipt"...)
	want = append(want, escpos.CharSize(0, 0)...)
	want = append(want, "\n\n"...)
	assert.Equal(t, want, out)
}

func TestCompileHeadingDepth2(t *testing.T) {
	out, err := Compile([]byte("## Items"))
	require.NoError(t, err)

	var want []byte
	want = append(want, escpos.Underline(true)...)
	want = append(want, escpos.Bold(true)...)
	want = append(want, "Items"...)
	want = append(want, escpos.Underline(false)...)
	want = append(want, escpos.Bold(false)...)
	want = append(want, "\n\n"...)
	assert.Equal(t, want, out)
}

func TestCompileHeadingDepth3(t *testing.T) {
	out, err := Compile([]byte("### Totals"))
	require.NoError(t, err)

	var want []byte
	want = append(want, escpos.Bold(true)...)
	want = append(want, "Totals"...)
	want = append(want, escpos.Bold(false)...)
	want = append(want, "\n\n"...)
	assert.Equal(t, want, out)
}

func TestCompileHeadingDepth4Unstyled(t *testing.T) {
	out, err := Compile([]byte("#### plain"))
	require.NoError(t, err)
	assert.Equal(t, []byte("plain\n\n"), out)
}

func TestCompileStrong(t *testing.T) {
	out, err := Compile([]byte("pay **now** please"))
	require.NoError(t, err)

	var want []byte
	want = append(want, "pay "...)
	want = append(want, escpos.Bold(true)...)
	want = append(want, "now"...)
	want = append(want, escpos.Bold(false)...)
	want = append(want, " please\n\n"...)
	assert.Equal(t, want, out)
}

func TestCompileBlockOrder(t *testing.T) {
	out, err := Compile([]byte("### Totals\n\n4.20"))
	require.NoError(t, err)

	var want []byte
	want = append(want, escpos.Bold(true)...)
	want = append(want, "Totals"...)
	want = append(want, escpos.Bold(false)...)
	want = append(want, "\n\n4.20\n\n"...)
	assert.Equal(t, want, out)
}

func TestCompileIgnoresUnsupportedNodes(t *testing.T) {
	out, err := Compile([]byte("```\nraw code\n```"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCompileDeterministic(t *testing.T) {
	src := []byte("# A\n\nsome **bold** text\n")
	first, err := Compile(src)
	require.NoError(t, err)
	second, err := Compile(src)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// Package markup compiles a markdown document into a stream of literal text
// bytes interleaved with ESC/POS formatting commands.
package markup

import (
	"bytes"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"github.com/nixxel-company-limited/escpos-usb-printer/escpos"
)

// Compile parses src as markdown and renders the resulting tree for the
// printer. Output is deterministic for a given input.
//
// Text bytes pass through verbatim: control bytes embedded in source text
// reach the printer as-is, so callers printing untrusted input must
// sanitize it first.
func Compile(src []byte) ([]byte, error) {
	doc := parser.New().Parse(src)

	var buf bytes.Buffer
	compileNode(doc, &buf)
	return buf.Bytes(), nil
}

func compileNode(node ast.Node, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Document:
		compileChildren(n, buf)
	case *ast.Paragraph:
		compileChildren(n, buf)
		buf.WriteString("\n\n")
	case *ast.Heading:
		style, reset := headingStyle(n.Level)
		buf.Write(style)
		compileChildren(n, buf)
		buf.Write(reset)
		buf.WriteString("\n\n")
	case *ast.Text:
		buf.Write(n.Literal)
	case *ast.Strong:
		buf.Write(escpos.Bold(true))
		compileChildren(n, buf)
		buf.Write(escpos.Bold(false))
	default:
		// Unsupported markup is dropped rather than failed.
	}
}

func compileChildren(node ast.Node, buf *bytes.Buffer) {
	for _, child := range node.GetChildren() {
		compileNode(child, buf)
	}
}

// headingStyle maps heading depth to the enable/disable command pairs
// bracketing its text: double character size for level 1, underline plus
// bold for level 2, bold for level 3, nothing deeper.
func headingStyle(level int) (style, reset []byte) {
	switch level {
	case 1:
		return escpos.CharSize(1, 1), escpos.CharSize(0, 0)
	case 2:
		style = append(escpos.Underline(true), escpos.Bold(true)...)
		reset = append(escpos.Underline(false), escpos.Bold(false)...)
		return style, reset
	case 3:
		return escpos.Bold(true), escpos.Bold(false)
	default:
		return nil, nil
	}
}

package textutil

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// StripMarkdown renders markdown content down to plain text suitable for
// chunking: headings and paragraphs become paragraph-separated text, list
// items and table rows become lines, and inline formatting is dropped.
func StripMarkdown(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	reader := text.NewReader(content)
	doc := markdownParser.Parser().Parse(reader)

	var b strings.Builder

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph:
			breakParagraph(&b)
			return ast.WalkContinue, nil

		case *ast.ListItem:
			breakLine(&b)
			return ast.WalkContinue, nil

		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil

		case *ast.String:
			b.Write(node.Value)
			return ast.WalkContinue, nil

		case *ast.CodeBlock:
			breakParagraph(&b)
			writeCodeLines(&b, node, content)
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			breakParagraph(&b)
			writeCodeLines(&b, node, content)
			return ast.WalkSkipChildren, nil

		default:
			// Table extension nodes have no concrete types exported here;
			// recognize them by kind name like the goldmark docs suggest.
			kindName := n.Kind().String()
			if strings.Contains(kindName, "TableRow") || strings.Contains(kindName, "TableHeader") {
				breakLine(&b)
				b.WriteString(tableRowText(n, content))
				return ast.WalkSkipChildren, nil
			}
			if kindName == "Table" {
				breakParagraph(&b)
			}
			return ast.WalkContinue, nil
		}
	})

	return strings.TrimSpace(b.String())
}

func breakParagraph(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n\n") {
		if strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		} else {
			b.WriteString("\n\n")
		}
	}
}

func breakLine(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

func writeCodeLines(b *strings.Builder, n ast.Node, content []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(content))
	}
}

// tableRowText extracts a table row as pipe-separated cell text.
func tableRowText(row ast.Node, content []byte) string {
	var b strings.Builder
	cells := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(node.Kind().String(), "TableCell") {
			if cells > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(strings.TrimSpace(nodeText(node, content)))
			cells++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

// nodeText extracts the plain text of a node and its children.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

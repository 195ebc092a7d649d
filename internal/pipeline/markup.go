package pipeline

import (
	"bytes"
	"fmt"
	stdhtml "html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownConverter renders GitHub-flavored markdown. goldmark.Markdown is
// safe for concurrent use.
var markdownConverter = goldmark.New(goldmark.WithExtensions(extension.GFM))

// convertMarkdown renders markdown to an HTML fragment.
func convertMarkdown(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownConverter.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("markdown conversion: %w", err)
	}
	return buf.Bytes(), nil
}

// styledDocument wraps an HTML fragment in the report document shell with
// inline styles.
func styledDocument(fragment []byte, title string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	buf.WriteString("<meta charset=\"UTF-8\">\n")
	buf.WriteString(fmt.Sprintf("<title>%s</title>\n", stdhtml.EscapeString(title)))
	buf.WriteString(reportStyles)
	buf.WriteString("\n</head>\n<body>\n")
	buf.Write(fragment)
	buf.WriteString("\n</body>\n</html>\n")
	return buf.Bytes()
}

// plainDocument wraps pre-rendered text in a minimal HTML shell. Used by the
// markup fallback when even the mechanical conversion fails.
func plainDocument(text string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<div><pre>")
	buf.WriteString(stdhtml.EscapeString(text))
	buf.WriteString("</pre></div>")
	return buf.Bytes()
}

// reportStyles is the inline stylesheet applied by the primary markup path.
const reportStyles = `<style>
body { font-family: 'Arial', 'Helvetica', sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { color: #2c3e50; text-align: center; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
h2 { color: #34495e; border-left: 4px solid #3498db; padding-left: 15px; }
h3 { color: #2c3e50; }
p { margin-bottom: 15px; text-align: justify; }
strong { color: #2c3e50; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th { background-color: #3498db; color: white; padding: 12px; text-align: left; }
td { padding: 10px 12px; border-bottom: 1px solid #ddd; }
tr:nth-child(even) { background-color: #f8f9fa; }
ul { padding-left: 20px; }
li { margin-bottom: 8px; }
</style>`

package email

import (
	"bytes"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"
)

const base64LineLength = 76

// encodeQuotedPrintable encodes s per RFC 2045 with soft line breaks at 76
// columns.
func encodeQuotedPrintable(s string) string {
	var buf bytes.Buffer
	w := quotedprintable.NewWriter(&buf)
	_, _ = w.Write([]byte(s))
	_ = w.Close()
	return buf.String()
}

// encodeHeader Q-encodes s per RFC 2047 when it contains non-ASCII
// characters and returns it unchanged otherwise.
func encodeHeader(s string) string {
	return mime.QEncoding.Encode("utf-8", s)
}

// formatAddress renders a recipient for use in a message header, encoding
// the display name when present.
func formatAddress(r Recipient) string {
	if r.Name == "" {
		return r.Address
	}
	a := mail.Address{Name: r.Name, Address: r.Address}
	return a.String()
}

func formatAddressList(rs []Recipient) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = formatAddress(r)
	}
	return strings.Join(parts, ", ")
}

// wrapBase64 strips any whitespace from caller-supplied base64 content and
// re-wraps it at 76 columns with CRLF line endings.
func wrapBase64(content string) string {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, content)

	var b strings.Builder
	for len(compact) > base64LineLength {
		b.WriteString(compact[:base64LineLength])
		b.WriteString("\r\n")
		compact = compact[base64LineLength:]
	}
	b.WriteString(compact)
	b.WriteString("\r\n")
	return b.String()
}

// mimeTypeOf resolves an attachment MIME type from the filename extension,
// defaulting to application/octet-stream.
func mimeTypeOf(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".zip":
		return "application/zip"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		// TypeByExtension may append a charset parameter.
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}

// Package email builds RFC 2045/2046/2822 MIME messages from a structured
// description of an email: text and HTML bodies, attachments, inline
// images wired via Content-ID, and header overrides.
package email

import (
	"bytes"
	"fmt"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/OliverSchlueter/goutils/idgen"
	"github.com/fancyinnovations/mailout/internal/address"
	"github.com/google/uuid"
)

// Seams for deterministic output in tests.
var (
	boundaryToken = func(prefix string) string {
		return prefix + idgen.GenerateID(24)
	}
	newMessageID = func(domain string) string {
		return "<" + uuid.New().String() + "@" + domain + ">"
	}
	now = time.Now
)

// Email is a validated message ready to be built and sent. It is immutable
// after New.
type Email struct {
	opts Options

	from       string   // normalized envelope sender
	recipients []string // normalized envelope recipients: To, Cc, Bcc
}

// New validates opts and returns an Email. It fails with ErrNoContent when
// neither a text nor an HTML body is present and with an
// InvalidAddressesError listing every address that fails validation.
// Validation happens here, before any network I/O.
func New(opts Options) (*Email, error) {
	if opts.Text == "" && opts.HTML == "" {
		return nil, ErrNoContent
	}
	if len(opts.To) == 0 {
		return nil, ErrNoRecipients
	}

	var invalid []string
	var recipients []string

	from, err := address.Validate(opts.From.Address)
	if err != nil {
		invalid = append(invalid, opts.From.Address)
	}

	for _, lists := range [][]Recipient{opts.To, opts.Cc, opts.Bcc} {
		for _, r := range lists {
			normalized, err := address.Validate(r.Address)
			if err != nil {
				invalid = append(invalid, r.Address)
				continue
			}
			recipients = append(recipients, normalized)
		}
	}

	if opts.ReplyTo != nil {
		if _, err := address.Validate(opts.ReplyTo.Address); err != nil {
			invalid = append(invalid, opts.ReplyTo.Address)
		}
	}

	if len(invalid) > 0 {
		return nil, &InvalidAddressesError{Addresses: invalid}
	}

	return &Email{
		opts:       opts,
		from:       from,
		recipients: recipients,
	}, nil
}

// From returns the normalized envelope sender address.
func (e *Email) From() string { return e.from }

// Recipients returns every normalized envelope recipient in order: To,
// then Cc, then Bcc. Bcc recipients receive the message through the
// envelope only and never appear in headers.
func (e *Email) Recipients() []string { return e.recipients }

// Options returns the options the Email was constructed from.
func (e *Email) Options() Options { return e.opts }

// DSN returns the per-message DSN override, or nil.
func (e *Email) DSN() *DSNOverride { return e.opts.DSN }

// Build assembles the full message: header block plus MIME body. The body
// shape is the smallest structure that fits the content:
//
//	text or html only        -> single part
//	text and html            -> multipart/alternative (html last)
//	any inline attachment    -> wrapped in multipart/related
//	any regular attachment   -> wrapped in multipart/mixed
//
// Boundaries are random per message; the content is not scanned for
// collisions.
func (e *Email) Build() ([]byte, error) {
	var inline, regular []Attachment
	for _, a := range e.opts.Attachments {
		if a.Inline || a.ContentID != "" {
			inline = append(inline, a)
		} else {
			regular = append(regular, a)
		}
	}

	entity := e.coreEntity()

	if len(inline) > 0 {
		parts := [][]byte{entity}
		for _, a := range inline {
			parts = append(parts, attachmentEntity(a, true))
		}
		entity = wrapEntity("related", boundaryToken("related_"), parts)
	}

	if len(regular) > 0 {
		parts := [][]byte{entity}
		for _, a := range regular {
			parts = append(parts, attachmentEntity(a, false))
		}
		entity = wrapEntity("mixed", boundaryToken("mixed_"), parts)
	}

	var buf bytes.Buffer
	buf.WriteString(e.headerBlock())
	buf.Write(entity)
	return buf.Bytes(), nil
}

// headerBlock renders the message headers excluding Content-Type, which
// belongs to the outermost MIME entity. Caller-supplied overrides win on
// key collision. Bcc is deliberately never emitted.
func (e *Email) headerBlock() string {
	h := map[string]string{
		"MIME-Version": "1.0",
		"From":         formatAddress(e.opts.From),
		"To":           formatAddressList(e.opts.To),
		"Subject":      encodeHeader(e.opts.Subject),
		"Date":         now().UTC().Format(time.RFC1123Z),
		"Message-ID":   newMessageID(domainOf(e.from)),
	}
	if len(e.opts.Cc) > 0 {
		h["Cc"] = formatAddressList(e.opts.Cc)
	}
	if e.opts.ReplyTo != nil {
		h["Reply-To"] = formatAddress(*e.opts.ReplyTo)
	}

	for k, v := range e.opts.Headers {
		key := textproto.CanonicalMIMEHeaderKey(k)
		if key == "Bcc" || key == "Content-Type" {
			continue
		}
		h[key] = v
	}

	order := []string{"MIME-Version", "Date", "Message-ID", "From", "To", "Cc", "Reply-To", "Subject"}

	var b strings.Builder
	seen := make(map[string]bool, len(h))
	for _, k := range order {
		if v, ok := h[k]; ok {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
			seen[k] = true
		}
	}

	var rest []string
	for k := range h {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fmt.Fprintf(&b, "%s: %s\r\n", k, h[k])
	}

	return b.String()
}

// coreEntity renders the text/html core of the message as a self-contained
// MIME entity: header lines, blank line, content.
func (e *Email) coreEntity() []byte {
	var buf bytes.Buffer

	if e.opts.Text != "" && e.opts.HTML != "" {
		boundary := boundaryToken("alt_")
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		// The html part comes last: clients prefer the final alternative.
		buf.WriteString("--" + boundary + "\r\n")
		buf.Write(textEntity("text/plain", e.opts.Text))
		buf.WriteString("--" + boundary + "\r\n")
		buf.Write(textEntity("text/html", e.opts.HTML))
		buf.WriteString("--" + boundary + "--\r\n")
		return buf.Bytes()
	}

	if e.opts.HTML != "" {
		return textEntity("text/html", e.opts.HTML)
	}
	return textEntity("text/plain", e.opts.Text)
}

func textEntity(contentType, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Type: %s; charset=\"UTF-8\"\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	buf.WriteString(encodeQuotedPrintable(body))
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func attachmentEntity(a Attachment, inline bool) []byte {
	mimeType := a.MIMEType
	if mimeType == "" {
		mimeType = mimeTypeOf(a.Filename)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Type: %s; name=%q\r\n", mimeType, a.Filename)
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	if inline {
		fmt.Fprintf(&buf, "Content-ID: <%s>\r\n", a.ContentID)
		fmt.Fprintf(&buf, "Content-Disposition: inline; filename=%q\r\n", a.Filename)
	} else {
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n", a.Filename)
	}
	buf.WriteString("\r\n")
	buf.WriteString(wrapBase64(a.Content))
	return buf.Bytes()
}

// wrapEntity nests parts inside a new multipart entity of the given
// subtype.
func wrapEntity(subtype, boundary string, parts [][]byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Type: multipart/%s; boundary=%q\r\n\r\n", subtype, boundary)
	for _, p := range parts {
		buf.WriteString("--" + boundary + "\r\n")
		buf.Write(p)
		if !bytes.HasSuffix(p, []byte("\r\n")) {
			buf.WriteString("\r\n")
		}
	}
	buf.WriteString("--" + boundary + "--\r\n")
	return buf.Bytes()
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}

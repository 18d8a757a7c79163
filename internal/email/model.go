package email

// Recipient is a mail address with an optional display name. The display
// name is only ever used in message headers; envelope commands always use
// the bare address.
type Recipient struct {
	Address string `json:"email" yaml:"email"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Attachment is a file attached to a message. Content is supplied
// base64-encoded by the caller and re-wrapped at 76 columns when the
// message is built. An inline attachment should carry a ContentID matching
// a cid: reference in the HTML body; the builder trusts the caller on that.
type Attachment struct {
	Filename  string `json:"filename" yaml:"filename"`
	Content   string `json:"content" yaml:"content"`
	MIMEType  string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	ContentID string `json:"cid,omitempty" yaml:"cid,omitempty"`
	Inline    bool   `json:"inline,omitempty" yaml:"inline,omitempty"`
}

// DSNRet selects how much of the original message a delivery status
// notification should return (RFC 3461 RET parameter).
type DSNRet struct {
	Full    bool `json:"full,omitempty" yaml:"full,omitempty"`
	Headers bool `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Param returns the RET parameter value, or "" if nothing is selected.
func (r *DSNRet) Param() string {
	if r == nil {
		return ""
	}
	if r.Full {
		return "FULL"
	}
	if r.Headers {
		return "HDRS"
	}
	return ""
}

// DSNNotify selects the conditions under which the server should emit a
// delivery status notification (RFC 3461 NOTIFY parameter).
type DSNNotify struct {
	Success bool `json:"success,omitempty" yaml:"success,omitempty"`
	Failure bool `json:"failure,omitempty" yaml:"failure,omitempty"`
	Delay   bool `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Param returns the NOTIFY parameter value, or "" if nothing is selected.
func (n *DSNNotify) Param() string {
	if n == nil {
		return ""
	}
	var parts []string
	if n.Success {
		parts = append(parts, "SUCCESS")
	}
	if n.Failure {
		parts = append(parts, "FAILURE")
	}
	if n.Delay {
		parts = append(parts, "DELAY")
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}

// DSNOptions are connection-level DSN defaults applied to every envelope.
type DSNOptions struct {
	Ret    *DSNRet    `json:"ret,omitempty" yaml:"ret,omitempty"`
	Notify *DSNNotify `json:"notify,omitempty" yaml:"notify,omitempty"`
}

// DSNOverride replaces the connection-level DSN defaults for one message.
// An override replaces the defaults entirely, it is not merged with them.
type DSNOverride struct {
	EnvelopeID string     `json:"envelope_id,omitempty" yaml:"envelope_id,omitempty"`
	Ret        *DSNRet    `json:"ret,omitempty" yaml:"ret,omitempty"`
	Notify     *DSNNotify `json:"notify,omitempty" yaml:"notify,omitempty"`
}

// Options describes an email to send. At least one of Text or HTML must be
// set. All addresses are validated when the Options are turned into an
// Email via New; a constructed Email is immutable.
type Options struct {
	From        Recipient         `json:"from" yaml:"from"`
	To          []Recipient       `json:"to" yaml:"to"`
	ReplyTo     *Recipient        `json:"reply,omitempty" yaml:"reply,omitempty"`
	Cc          []Recipient       `json:"cc,omitempty" yaml:"cc,omitempty"`
	Bcc         []Recipient       `json:"bcc,omitempty" yaml:"bcc,omitempty"`
	Subject     string            `json:"subject" yaml:"subject"`
	Text        string            `json:"text,omitempty" yaml:"text,omitempty"`
	HTML        string            `json:"html,omitempty" yaml:"html,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	DSN         *DSNOverride      `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

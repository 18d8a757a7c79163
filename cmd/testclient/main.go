// Command testclient sends a test mail through a relay using go-mail, as
// an interop check against an independent SMTP client implementation.
package main

import (
	"flag"
	"log"

	"github.com/wneessen/go-mail"
)

func main() {
	host := flag.String("host", "localhost", "relay host")
	port := flag.Int("port", 2525, "relay port")
	from := flag.String("from", "sender@localhost", "envelope sender")
	to := flag.String("to", "rcpt@localhost", "envelope recipient")
	username := flag.String("username", "", "AUTH PLAIN username")
	password := flag.String("password", "", "AUTH PLAIN password")
	flag.Parse()

	m := mail.NewMsg()
	if err := m.From(*from); err != nil {
		log.Fatalf("failed to set From address: %s", err)
	}
	if err := m.To(*to); err != nil {
		log.Fatalf("failed to set To address: %s", err)
	}
	m.Subject("mailout interop check")
	m.SetBodyString(mail.TypeTextPlain, "Sent through go-mail to cross-check relay behavior.")

	opts := []mail.Option{
		mail.WithPort(*port),
		mail.WithTLSPolicy(mail.NoTLS),
	}
	if *username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(*username),
			mail.WithPassword(*password),
		)
	}

	c, err := mail.NewClient(*host, opts...)
	if err != nil {
		log.Fatalf("failed to create mail client: %s", err)
	}

	if err := c.DialAndSend(m); err != nil {
		log.Fatalf("failed to send mail: %s", err)
	}
	log.Println("mail accepted by relay")
}

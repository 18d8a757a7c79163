package smtp

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/emersion/go-msgauth/dkim"
)

// DKIMSigner signs outgoing messages with an RSA key published under
// <selector>._domainkey.<domain>.
type DKIMSigner struct {
	domain   string
	selector string
	key      *rsa.PrivateKey
}

// NewDKIMSigner loads a PKCS#1 PEM private key from path. The domain must
// match the From domain of the messages being signed.
func NewDKIMSigner(domain, selector, path string) (*DKIMSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM data in %s", path)
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	return &DKIMSigner{
		domain:   domain,
		selector: selector,
		key:      key,
	}, nil
}

// Sign returns msg with a DKIM-Signature header prepended.
func (s *DKIMSigner) Sign(msg []byte) ([]byte, error) {
	opts := &dkim.SignOptions{
		Domain:   s.domain,
		Selector: s.selector,
		Signer:   s.key,
		HeaderKeys: []string{
			"from",
			"to",
			"subject",
			"date",
			"message-id",
		},
	}

	var signed bytes.Buffer
	if err := dkim.Sign(&signed, bytes.NewReader(msg), opts); err != nil {
		return nil, err
	}
	return signed.Bytes(), nil
}

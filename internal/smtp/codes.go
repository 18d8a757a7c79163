package smtp

// Reply codes the client expects at each protocol step (RFC 5321 §4.2.3,
// RFC 4954 §6).
const (
	codeServiceReady   = 220
	codeClosing        = 221
	codeAuthSuccess    = 235
	codeOK             = 250
	codeWillForward    = 251
	codeAuthContinue   = 334
	codeStartMailInput = 354
)

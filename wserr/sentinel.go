package wserr

// Predefined sentinel errors for errors.Is comparisons. These carry no
// detail; use Wrap/Wrapf when the underlying cause matters.
var (
	ErrInvalidURL       = New(CodeInvalidURL, "invalid websocket URL")
	ErrProxyUnreachable = New(CodeProxyUnreachable, "proxy unreachable")
	ErrProxyHandshake   = New(CodeProxyHandshake, "proxy handshake failed")
	ErrProxyUnsupported = New(CodeProxyUnsupported, "proxy not supported on this backend")
	ErrTLSHandshake     = New(CodeTLSHandshake, "tls handshake failed")
	ErrWSHandshake      = New(CodeWSHandshake, "websocket handshake failed")
	ErrTimeout          = New(CodeTimeout, "connect timeout exceeded")
	ErrIO               = New(CodeIO, "i/o error")
	ErrOverflow         = New(CodeOverflow, "inbound buffer overflow")
	ErrStreamClosed     = New(CodeStreamClosed, "stream is closed")
	ErrInvalidClose     = New(CodeInvalidClose, "invalid close code or reason")
)

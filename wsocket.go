// Package wsocket provides one asynchronous WebSocket connection
// abstraction with two compile-time backends: a native stack (TCP,
// optional SOCKS5 tunnel, optional TLS, HTTP Upgrade) and a browser
// stack (js/wasm) that delegates transport entirely to the host
// WebSocket primitive. Both produce the same Session contract and the
// same error taxonomy (package wserr), so calling code is identical on
// either target.
//
// Backend selection happens at build time via build tags, never at
// runtime: native builds never link the js glue, and js/wasm builds
// never link the socket/TLS/proxy stack.
package wsocket

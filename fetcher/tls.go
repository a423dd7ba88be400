package fetcher

import (
	"context"
	"fmt"
	"net"
	"time"

	tls "github.com/refraction-networking/utls"
)

// chromeH1Spec is a Chrome-like ClientHello with ALPN forced to http/1.1,
// since net/http cannot speak h2 over a utls connection. chromeH1SpecOK is
// false when the spec could not be generated.
var (
	chromeH1Spec   tls.ClientHelloSpec
	chromeH1SpecOK bool
)

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// newChromeConn falls back to HelloChrome_Auto as-is.
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
	chromeH1SpecOK = true
}

// newChromeConn wraps conn in a utls client with the Chrome fingerprint.
// Without a generated spec it uses the stock HelloChrome_Auto preset.
func newChromeConn(conn net.Conn, host string) (*tls.UConn, error) {
	if !chromeH1SpecOK {
		return tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloChrome_Auto), nil
	}
	uconn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := uconn.ApplyPreset(&chromeH1Spec); err != nil {
		return nil, fmt.Errorf("fetcher: apply tls spec: %w", err)
	}
	return uconn, nil
}

// dialTLSChrome establishes a TLS connection using the Chrome fingerprint.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn, err := newChromeConn(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	// The stock preset offers h2, which the transport cannot speak here.
	if p := tlsConn.ConnectionState().NegotiatedProtocol; p != "" && p != "http/1.1" {
		conn.Close()
		return nil, fmt.Errorf("fetcher: server negotiated %q over fingerprinted tls", p)
	}
	return tlsConn, nil
}

// Package tlsacceptor implements the TLS-terminated variant of the
// acceptor from spec §4.8. It loads (or generates) a certificate/key
// pair, builds a *tls.Config, and returns an acceptor.ConnWrapper that
// performs the server handshake before handing the resulting *tls.Conn
// to the regular connection handler — resolving the "known limitation"
// spec §9 flags by routing every subsequent read/write through the TLS
// session for the life of the connection, not just the handshake.
package tlsacceptor

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/diogin/multiflowproxy/internal/acceptor"
	"github.com/diogin/multiflowproxy/internal/errs"
)

// TempCertFile and TempKeyFile are the filenames the source uses when no
// --cert is given (spec §6 "Persisted state"); kept identical for parity
// with the original multiflowproxy's SSLProxyServer.
const (
	TempCertFile = "./temp.crt"
	TempKeyFile  = "./temp.key"
)

// LoadOrGenerate loads certPath (a combined PEM with cert then key) or,
// if certPath is empty, generates a one-year self-signed CN=localhost
// certificate and persists it to TempCertFile/TempKeyFile.
func LoadOrGenerate(certPath string, logger *zap.Logger) (tls.Certificate, error) {
	if certPath != "" {
		cert, err := tls.LoadX509KeyPair(certPath, certPath)
		if err != nil {
			return tls.Certificate{}, errs.New(errs.Tls, "load cert "+certPath, err)
		}
		return cert, nil
	}

	if logger != nil {
		logger.Warn("no --cert given, generating a self-signed certificate",
			zap.String("cert", TempCertFile), zap.String("key", TempKeyFile))
	}
	certPEM, keyPEM, err := generateSelfSigned()
	if err != nil {
		return tls.Certificate{}, errs.New(errs.Tls, "generate self-signed certificate", err)
	}
	if err := os.WriteFile(TempCertFile, certPEM, 0o600); err != nil {
		return tls.Certificate{}, errs.New(errs.Tls, "write "+TempCertFile, err)
	}
	if err := os.WriteFile(TempKeyFile, keyPEM, 0o600); err != nil {
		return tls.Certificate{}, errs.New(errs.Tls, "write "+TempKeyFile, err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errs.New(errs.Tls, "parse generated certificate", err)
	}
	return cert, nil
}

func generateSelfSigned() (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

// NewWrapper builds an acceptor.ConnWrapper that performs the TLS server
// handshake over cfg before returning the *tls.Conn for the regular
// connection handler to drive — ciphers follow Go's modern defaults
// (tls.Config.CipherSuites left unset), the closest idiomatic
// equivalent to the source's permissive "DEFAULT" OpenSSL cipher list
// for a modern server method.
func NewWrapper(cert tls.Certificate, logger *zap.Logger) acceptor.ConnWrapper {
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return func(conn net.Conn) (net.Conn, error) {
		tlsConn := tls.Server(conn, cfg)
		if err := tlsConn.HandshakeContext(context.Background()); err != nil {
			return nil, errs.New(errs.Tls, "handshake", err)
		}
		return tlsConn, nil
	}
}

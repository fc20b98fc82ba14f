package tlsacceptor

import (
	"crypto/tls"
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrGenerateWithoutCertPathWritesTempFiles(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	cert, err := LoadOrGenerate("", nil)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	if len(cert.Certificate) == 0 {
		t.Fatal("generated certificate has no DER bytes")
	}
	if _, err := os.Stat(filepath.Join(dir, "temp.crt")); err != nil {
		t.Fatalf("temp.crt not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "temp.key")); err != nil {
		t.Fatalf("temp.key not written: %v", err)
	}
}

func TestNewWrapperHandshakesAndRelaysData(t *testing.T) {
	certPEM, keyPEM, err := generateSelfSigned()
	if err != nil {
		t.Fatalf("generateSelfSigned: %v", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair: %v", err)
	}

	serverRaw, clientRaw := net.Pipe()
	wrap := NewWrapper(cert, nil)

	serverDone := make(chan error, 1)
	var serverConn net.Conn
	go func() {
		var err error
		serverConn, err = wrap(serverRaw)
		serverDone <- err
	}()

	clientConn := tls.Client(clientRaw, &tls.Config{InsecureSkipVerify: true})
	if err := clientConn.Handshake(); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server handshake: %v", err)
	}

	go func() {
		clientConn.Write([]byte("ping"))
	}()
	buf := make([]byte, 4)
	n, err := serverConn.Read(buf)
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("server got %q, want %q", buf[:n], "ping")
	}
}

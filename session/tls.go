package session

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// maxCABundleSize bounds the custom CA PEM file the session will load.
const maxCABundleSize = 10 * 1024 * 1024

// ErrCABundleTooLarge is returned when a custom CA bundle exceeds
// maxCABundleSize.
var ErrCABundleTooLarge = errors.New("session: custom CA bundle exceeds 10MB limit")

// ErrNoValidCertificates is returned when every certificate in a
// custom CA bundle fails to parse.
var ErrNoValidCertificates = errors.New("session: custom CA bundle contains no valid certificates")

// buildTLSConfig constructs a tls.Config for the given host, always
// validating certificates. caPEM, if non-empty, is parsed as a custom CA
// bundle; a request to disable validation is simply never wired to
// InsecureSkipVerify anywhere in this package.
func buildTLSConfig(serverName string, caPEM []byte) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
	if len(caPEM) == 0 {
		return cfg, nil
	}
	pool, err := parseCABundle(caPEM)
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// parseCABundle builds a cert pool from a PEM bundle, tolerating
// individual malformed certificates: each PEM block is DER-parsed on
// its own, and a bad block is skipped rather than aborting the whole
// bundle, unless none of the blocks parse.
func parseCABundle(pemBytes []byte) (*x509.CertPool, error) {
	if len(pemBytes) > maxCABundleSize {
		return nil, ErrCABundleTooLarge
	}
	pool := x509.NewCertPool()
	valid := 0
	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		pool.AddCert(cert)
		valid++
	}
	if valid == 0 {
		return nil, ErrNoValidCertificates
	}
	return pool, nil
}

func tlsHandshakeError(err error) error {
	return fmt.Errorf("tls handshake: %w", err)
}

package jwtkit

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ParsePrivateKeyPEM decodes an RSA or ECDSA private key. PKCS#1, SEC 1 and
// PKCS#8 encodings are accepted.
func ParsePrivateKeyPEM(pemBytes []byte) (any, error) {
	if len(pemBytes) == 0 {
		return nil, errors.New("empty private key pem")
	}
	blk, _ := pem.Decode(pemBytes)
	if blk == nil {
		return nil, errors.New("failed to decode private key pem")
	}
	switch blk.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(blk.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(blk.Bytes)
	}
	key, err := x509.ParsePKCS8PrivateKey(blk.Bytes)
	if err != nil {
		// Some keys are labelled PRIVATE KEY but carry SEC 1 bytes.
		if ec, err2 := x509.ParseECPrivateKey(blk.Bytes); err2 == nil {
			return ec, nil
		}
		return nil, err
	}
	switch k := key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("pkcs8 key is %T, want RSA or ECDSA", key)
	}
}

// ParseRSAPrivateKeyPEM decodes a PEM private key and requires it to be RSA.
func ParseRSAPrivateKeyPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := ParsePrivateKeyPEM(pemBytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rsaKey, nil
}

// EncodeRSAPrivateKeyPEM returns the PKCS#1 PEM encoding of key.
func EncodeRSAPrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// Command keygen writes a token signing key pair.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"log"
	"os"

	"golang.org/x/crypto/ssh"
)

func main() {
	var (
		privPath   = flag.String("private", "token.key", "private key output path")
		pubPath    = flag.String("public", "token.pub", "public key output path")
		bits       = flag.Int("bits", 3072, "RSA modulus size")
		passphrase = flag.String("passphrase", os.Getenv("TOKEN_PRIVATE_KEY_PASSPHRASE"), "encrypts the private key when set")
	)
	flag.Parse()

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}

	var block *pem.Block
	if *passphrase != "" {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(key, "agora token key", []byte(*passphrase))
	} else {
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	}
	if err != nil {
		log.Fatalf("encode private key: %v", err)
	}
	if err := os.WriteFile(*privPath, pem.EncodeToMemory(block), 0o600); err != nil {
		log.Fatalf("write private key: %v", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		log.Fatalf("encode public key: %v", err)
	}
	if err := os.WriteFile(*pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644); err != nil {
		log.Fatalf("write public key: %v", err)
	}
	log.Printf("wrote %s and %s", *privPath, *pubPath)
}

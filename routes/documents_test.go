package routes

import (
	"bytes"
	"strings"
	"testing"
)

func TestSniffMime_litLesOctetsReels(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)
	if got := sniffMime(bytes.NewReader(png)); got != "image/png" {
		t.Fatalf("type = %q, attendu image/png", got)
	}

	pdf := []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj\n")
	if got := sniffMime(bytes.NewReader(pdf)); got != "application/pdf" {
		t.Fatalf("type = %q, attendu application/pdf", got)
	}
}

func TestSniffMime_fichierCourt(t *testing.T) {
	// Moins de 512 octets : seuls les octets lus comptent, pas le reste du tampon.
	got := sniffMime(strings.NewReader("relevé du compteur : 1234 kWh"))
	if !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("type = %q, attendu text/plain", got)
	}
}

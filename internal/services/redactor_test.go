package services

import (
	"strings"
	"testing"
)

func TestRedactContactInfoMasksEmails(t *testing.T) {
	cases := map[string]string{
		"Contactez-moi sur jean.dupont@example.com svp": "Contactez-moi sur [email masqué] svp",
		"mon mail: j-d+pro@mail.example.fr":             "mon mail: [email masqué]",
		"deux adresses a@b.fr et c@d.com":               "deux adresses [email masqué] et [email masqué]",
	}

	for input, want := range cases {
		if got := RedactContactInfo(input); got != want {
			t.Fatalf("RedactContactInfo(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRedactContactInfoMasksFrenchPhoneFormats(t *testing.T) {
	inputs := []string{
		"appelez le 0612345678",
		"appelez le 06 12 34 56 78",
		"appelez le 06.12.34.56.78",
		"appelez le 06-12-34-56-78",
		"appelez le +33 6 12 34 56 78",
		"appelez le +33612345678",
		"appelez le 0033612345678",
	}

	for _, input := range inputs {
		got := RedactContactInfo(input)
		if got != "appelez le "+PhonePlaceholder {
			t.Fatalf("RedactContactInfo(%q) = %q", input, got)
		}
	}
}

func TestRedactContactInfoLeavesShortNumbersAlone(t *testing.T) {
	inputs := []string{
		"le code de la porte est 2348",
		"RDV en 2026 au 12 rue Victor Hugo",
		"surface de 85 m2, 4 pièces",
	}

	for _, input := range inputs {
		if got := RedactContactInfo(input); got != input {
			t.Fatalf("RedactContactInfo(%q) = %q, expected untouched", input, got)
		}
	}
}

func TestRedactContactInfoMasksMixedMessage(t *testing.T) {
	input := "Bonjour, écrivez-moi sur marie@agence.fr ou appelez le 07 98 76 54 32 directement."
	got := RedactContactInfo(input)

	if strings.Contains(got, "marie@agence.fr") || strings.Contains(got, "07 98 76 54 32") {
		t.Fatalf("contact details leaked: %q", got)
	}
	if !strings.Contains(got, EmailPlaceholder) || !strings.Contains(got, PhonePlaceholder) {
		t.Fatalf("placeholders missing: %q", got)
	}
	if !strings.HasPrefix(got, "Bonjour, écrivez-moi sur ") || !strings.HasSuffix(got, " directement.") {
		t.Fatalf("surrounding text altered: %q", got)
	}
}

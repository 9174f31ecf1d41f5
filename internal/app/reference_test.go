package app

import (
	"strings"
	"testing"
	"time"
)

func TestNewReferenceFormat(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	ref := NewReference(now)

	if !strings.HasPrefix(ref, "TXN20250314092653") {
		t.Fatalf("reference %q does not carry the timestamp prefix", ref)
	}
	if len(ref) != len("TXN")+14+3 {
		t.Fatalf("reference %q has length %d, want %d", ref, len(ref), len("TXN")+14+3)
	}
	suffix := ref[len(ref)-3:]
	for _, c := range suffix {
		if c < '0' || c > '9' {
			t.Fatalf("reference suffix %q is not numeric", suffix)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "0"},
		{500, "500"},
		{12500, "12 500"},
		{1250000, "1 250 000"},
		{-75000, "-75 000"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.amount); got != tc.want {
			t.Fatalf("FormatAmount(%d) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestFormatBalance(t *testing.T) {
	if got := FormatBalance(12500); got != "12 500,00 FCFA" {
		t.Fatalf("FormatBalance(12500) = %q", got)
	}
}

func TestDescriptionFor(t *testing.T) {
	cases := []struct {
		txnType string
		amount  int64
		name    string
		want    string
	}{
		{"transfer", 25000, "Awa Diop", "Transfer of 25 000 FCFA to Awa Diop"},
		{"payment", 10000, "Chez Fatou", "Payment of 10 000 FCFA to Chez Fatou"},
		{"deposit", 50000, "", "Deposit of 50 000 FCFA"},
		{"withdrawal", 15000, "", "Withdrawal of 15 000 FCFA"},
	}
	for _, tc := range cases {
		if got := DescriptionFor(tc.txnType, tc.amount, tc.name); got != tc.want {
			t.Fatalf("DescriptionFor(%q, %d, %q) = %q, want %q", tc.txnType, tc.amount, tc.name, got, tc.want)
		}
	}
}

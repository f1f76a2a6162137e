package engine

import "strings"

var ackWords = map[string]bool{
	"ok": true, "oke": true, "okey": true, "okay": true, "baik": true,
	"baiklah": true, "siap": true, "sip": true, "iya": true, "ya": true,
	"yaa": true, "yup": true, "yep": true, "thanks": true, "makasih": true,
	"noted": true, "good": true, "mantap": true, "aman": true, "done": true,
	"sudah": true, "udah": true,
}

// IsAcknowledgment reports whether a message is a bare acknowledgment like
// "ok", "siap" or "makasih". A message of up to three words starting with
// an acknowledgment word also counts.
func IsAcknowledgment(message string) bool {
	clean := strings.TrimRight(strings.TrimSpace(strings.ToLower(message)), ".!,")
	if clean == "" {
		return false
	}
	if clean == "terima kasih" || ackWords[clean] {
		return true
	}
	words := strings.Fields(clean)
	return len(words) <= 3 && ackWords[words[0]]
}

var reportTerms = []string{
	// status & progress
	"laporan", "gimana", "bagaimana", "sudah", "udah", "belum",
	"progress", "status", "proses", "ditangani", "kapan",
	// internet issues
	"gangguan", "mati", "lambat", "putus", "tidak bisa", "gak bisa",
	"ga bisa", "gabisa", "gk bisa", "error", "masalah", "kendala",
	"trouble", "down", "lelet", "lemot", "lag", "disconnect",
	"los", "merah", "rusak", "wifi", "internet", "koneksi",
	// persistence / frustration
	"masih", "tetap", "tetep", "sama aja", "gk usah", "juga",
}

// IsReportRelated reports whether a message touches an open complaint:
// status inquiries, connectivity problems, or persistence wording.
func IsReportRelated(message string) bool {
	msg := strings.ToLower(message)
	for _, term := range reportTerms {
		if strings.Contains(msg, term) {
			return true
		}
	}
	return false
}

var yesWords = map[string]bool{
	"ya": true, "iya": true, "yaa": true, "yup": true, "yes": true,
	"benar": true, "betul": true, "ok": true, "oke": true, "sudah": true,
	"sip": true, "siap": true, "lanjut": true, "gas": true,
}

var noWords = map[string]bool{
	"tidak": true, "gak": true, "ga": true, "nggak": true, "ngga": true,
	"engga": true, "enggak": true, "no": true, "bukan": true, "salah": true,
	"belum": true, "batal": true, "ulang": true,
}

type confirmation int

const (
	confirmAmbiguous confirmation = iota
	confirmYes
	confirmNo
)

// parseConfirmation reads a short yes/no answer. Longer messages whose
// first word is a clear yes/no still count; anything else is ambiguous.
func parseConfirmation(message string) confirmation {
	words := strings.Fields(strings.ToLower(message))
	if len(words) == 0 || len(words) > 3 {
		return confirmAmbiguous
	}
	first := strings.Trim(words[0], ".!,?")
	switch {
	case noWords[first]:
		return confirmNo
	case yesWords[first]:
		return confirmYes
	}
	return confirmAmbiguous
}

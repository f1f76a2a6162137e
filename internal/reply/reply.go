// Package reply holds the canned reply texts. Defaults are compiled in;
// a YAML file can override any of them per deployment.
package reply

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Templates is the set of fixed reply texts sent without oracle involvement.
type Templates struct {
	Acknowledgment     string `yaml:"acknowledgment"`
	PendingReport      string `yaml:"pendingReport"`
	TroubleshootSteps  string `yaml:"troubleshootSteps"`
	ComplaintForm      string `yaml:"complaintForm"`
	Promo              string `yaml:"promo"`
	Resolved           string `yaml:"resolved"`
	ThanksClosing      string `yaml:"thanksClosing"`
	TroubleshootAck    string `yaml:"troubleshootAck"`
	TroubleshootClarif string `yaml:"troubleshootClarify"`
	ConfirmClarify     string `yaml:"confirmClarify"`
	ConfirmSummary     string `yaml:"confirmSummary"`
	RetryID            string `yaml:"retryId"`
	StatusInProgress   string `yaml:"statusInProgress"`
	ComplaintPending   string `yaml:"complaintPending"`
	AskMissingID       string `yaml:"askMissingId"`
	AskMissingDesc     string `yaml:"askMissingDescription"`
	FormReprompt       string `yaml:"formReprompt"`
}

// Defaults returns the built-in Indonesian reply set.
func Defaults() Templates {
	return Templates{
		Acknowledgment: "Siap kak!",

		PendingReport: "Halo kak! 👋\n\nLaporan kakak masih dalam proses penanganan oleh tim teknis kami. Mohon ditunggu ya kak, tim kami akan segera menghubungi kakak untuk tindak lanjut.\n\nTerima kasih atas kesabarannya 🙏",

		TroubleshootSteps: `**Langkah Troubleshooting:**
1. Restart modem - cabut kabel power, tunggu 30 detik, colok lagi
2. Pastikan semua kabel (power, LAN, fiber) terpasang dengan baik
3. Cek lampu modem:
   - Power, LAN, PON harus hijau ✅
   - Jika LOS merah = ada gangguan fiber
4. Jika pakai WiFi, coba dekatkan device ke modem`,

		ComplaintForm: "Baik kak, untuk proses penanganan lebih lanjut, mohon kirim data berikut:\n\n*Copy dan lengkapi:*\n\n```\nID Pelanggan: \nKendala: \n```\n\nSetelah diisi, langsung kirim ke chat ini ya kak 🙏",

		Promo: `📢 *PROMO SAAT INI:*

• Bebas biaya instalasi!
• Sistem prabayar - bayar setelah aktivasi
• Paket 30/50/100 Mbps dapat 40 channel TV Transvision GRATIS
• Harga belum termasuk PPN 11% dan admin Rp 5.000
• Pemasangan ± 1-3 hari kerja jika lokasi tercover

Boleh dibantu *share lokasi* kak, agar bisa kami cek apakah tercover jaringan kami 📍`,

		Resolved: "Alhamdulillah sudah normal ya kak! 🎉 Senang bisa membantu. Jika ada kendala lagi, silakan hubungi kami kapan saja 😊",

		ThanksClosing: "Siap kak! Ada yang bisa dibantu lagi? 😊",

		TroubleshootAck: "Siap kak! Coba dulu langkah-langkahnya ya. Kabari kalau sudah dicoba 😊",

		TroubleshootClarif: "Bagaimana kak, sudah dicoba langkah-langkahnya? Apakah sudah normal atau masih bermasalah? 🙏",

		ConfirmClarify: "Mohon konfirmasi ya kak, apakah data di atas sudah benar? Balas *ya* atau *tidak* 🙏",

		ConfirmSummary: "Baik kak, mohon cek data laporannya:\n\n• Nama: %s\n• ID Pelanggan: %s\n• Kendala: %s\n\nApakah sudah benar? Balas *ya* untuk kami proses, atau *tidak* untuk mengulang 🙏",

		RetryID: "Mohon maaf kak, ID Pelanggan *%s* tidak ditemukan di sistem kami 🙏\n\nBoleh dicek lagi dan kirim ulang ID Pelanggannya ya kak.",

		StatusInProgress: "Laporan kakak sudah diterima dan sedang dalam proses penanganan 🔧\n\nTim kami akan segera menghubungi. Ada hal lain yang bisa dibantu?",

		ComplaintPending: "Untuk laporan sebelumnya masih dalam proses kak 🔧\n\nJika ini masalah berbeda atau ada info tambahan, silakan sampaikan.",

		AskMissingID: "Baik kak, boleh kirim *ID Pelanggan*-nya dulu ya? Formatnya kombinasi huruf dan angka, contoh: C650AD 🙏",

		AskMissingDesc: "ID Pelanggan sudah kami terima kak. Boleh jelaskan *kendalanya* juga ya? Misalnya: internet mati sejak kapan 🙏",

		FormReprompt: "Baik kak, kita ulang ya. Mohon kirim *ID Pelanggan* dan *kendalanya* lagi 🙏",
	}
}

// Load reads overrides from a YAML file layered over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Templates, error) {
	tpl := Defaults()
	if path == "" {
		return tpl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("reply: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return tpl, fmt.Errorf("reply: parse %s: %w", path, err)
	}
	return tpl, nil
}

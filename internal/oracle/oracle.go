// Package oracle wraps the language model behind two narrow operations:
// intent classification over a closed label set and persona reply
// generation. Failures never reach the caller; classification degrades to
// IntentOther and generation to a fixed apology.
package oracle

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/intynet/neti/internal/llm"
	"github.com/intynet/neti/internal/session"
)

// Intent is a classified message intent.
type Intent string

const (
	IntentProduct     Intent = "product"
	IntentComplaint   Intent = "complaint"
	IntentStatus      Intent = "status"
	IntentResolved    Intent = "resolved"
	IntentNotResolved Intent = "not_resolved"
	IntentFormData    Intent = "form_data"
	IntentGreeting    Intent = "greeting"
	IntentThanks      Intent = "thanks"
	IntentOther       Intent = "other"
)

var validIntents = map[Intent]bool{
	IntentProduct:     true,
	IntentComplaint:   true,
	IntentStatus:      true,
	IntentResolved:    true,
	IntentNotResolved: true,
	IntentFormData:    true,
	IntentGreeting:    true,
	IntentThanks:      true,
	IntentOther:       true,
}

// NormalizeIntent maps a raw oracle label onto the closed intent set.
// Anything unrecognized becomes IntentOther.
func NormalizeIntent(raw string) Intent {
	in := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if validIntents[in] {
		return in
	}
	return IntentOther
}

// ChatClient is the completion call the oracle needs.
type ChatClient interface {
	Chat(ctx context.Context, req llm.Request) (string, error)
}

// FallbackReply is sent when generation fails.
const FallbackReply = "Maaf kak, ada kendala sistem. Bisa coba lagi ya? 🙏"

// Oracle classifies intents and generates persona replies.
type Oracle struct {
	client ChatClient
}

// New creates an Oracle on top of a chat client.
func New(client ChatClient) *Oracle {
	return &Oracle{client: client}
}

var stateHints = map[session.State]string{
	session.StateDetect:       "User baru memulai atau topik baru.",
	session.StateProductInfo:  "User sedang bertanya tentang produk.",
	session.StateTroubleshoot: "User baru dapat langkah troubleshooting, tunggu hasil coba.",
	session.StateFormCollect:  "User sudah diminta isi data laporan. Cek apakah mengirim data.",
	session.StateValidating:   "Sistem sedang memvalidasi ID pelanggan.",
	session.StateConfirm:      "User diminta konfirmasi ya/tidak atas data laporan.",
	session.StateEscalated:    "User punya laporan aktif yang sedang diproses tim.",
}

// Classify returns the intent of a message given the current dialogue state
// and a short context string. Errors degrade to IntentOther.
func (o *Oracle) Classify(ctx context.Context, message string, state session.State, convContext string) Intent {
	system := fmt.Sprintf(`Kamu adalah intent classifier untuk chatbot ISP.

CURRENT STATE: %s
STATE CONTEXT: %s
CONVERSATION CONTEXT: %s

Klasifikasikan pesan user ke SATU intent berikut:
- "product": Tanya produk, harga, paket, instalasi, langganan, promo
- "complaint": Lapor masalah internet (lambat, mati, putus, error, gangguan)
- "status": Tanya status laporan/tiket/progress penanganan
- "resolved": Bilang masalah sudah teratasi/normal/bekerja lagi
- "not_resolved": Bilang masalah masih ada/belum beres setelah troubleshoot
- "form_data": Mengirim data laporan (ada ID pelanggan, nama, kendala)
- "greeting": Sapaan (halo, hi, selamat pagi, dll)
- "thanks": Terima kasih, ok, baik, siap, iya, noted
- "other": Tidak terkait layanan ISP

ATURAN PENTING STATE:
1. STATE "form_collect": Jika pesan berisi ID/nama/kendala → "form_data"
2. STATE "troubleshoot":
   - Respon negatif (masih bermasalah, belum, tetap, ga bisa) → "not_resolved"
   - Respon positif (sudah normal, bisa, lancar) → "resolved"
   - Pertanyaan baru → sesuai topik
3. Pesan singkat "ok", "baik", "siap", "oke", "ya" → "thanks"
4. Tanya "gimana laporan", "sudah ditangani" → "status"

PENTING: Pahami MAKSUD pesan, bukan hanya kata-kata.
Contoh: "wifi saya kok jadi begini ya" = complaint (bukan product)
Contoh: "oh gitu, oke deh" = thanks (bukan resolved)

Jawab HANYA dengan satu kata intent, tidak ada penjelasan.`, state, stateHints[state], convContext)

	out, err := o.client.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		},
		Temperature: 0.1,
		MaxTokens:   20,
	})
	if err != nil {
		log.Printf("[Oracle] ❌ classify failed: %v", err)
		return IntentOther
	}

	intent := NormalizeIntent(out)
	log.Printf("[Oracle] 🎯 intent=%s state=%s", intent, state)
	return intent
}

const persona = `Kamu adalah Neti, asisten virtual Intynet (ISP fiber-optic di Balikpapan).

PERSONALITY:
- Ramah dan helpful
- Bahasa Indonesia casual, sopan (pakai "kak")
- Emoji secukupnya (1-2 per pesan)
- Empathetic terhadap keluhan
- Response singkat dan to the point (max 3 paragraf)

RULES:
- Jawab berdasarkan knowledge base
- Jangan mengarang info yang tidak ada
- Jika di luar knowledge base, bilang akan dibantu tim terkait`

const knowledgeBase = `
## LAYANAN INTYNET

Intynet adalah layanan internet fiber-optic dengan:
- ✅ Unlimited tanpa kuota & FUP
- ✅ Kecepatan stabil sesuai paket
- ✅ Modem + WiFi dipinjamkan GRATIS
- ✅ TV Transvision untuk paket tertentu
- ✅ Support 24 jam
- 💰 Instalasi normal: Rp 150.000 (PROMO: GRATIS!)

## PAKET INTERNET RUMAH

| Paket   | Speed    | Harga/bulan  |
|---------|----------|--------------|
| Starter | 10 Mbps  | Rp 149.000   |
| Smart   | 20 Mbps  | Rp 199.000   |
| Family  | 30 Mbps  | Rp 249.000   |
| Maxima  | 50 Mbps  | Rp 299.000   |
| Ultima  | 100 Mbps | Rp 380.000   |

*Harga belum termasuk PPN 11% dan admin Rp 5.000*
*Paket 30/50/100 Mbps gratis 40 channel TV Transvision!*

## PAKET BISNIS
- Bandwidth: 50–200 Mbps
- IP privat tersedia
- Harga konsultasi lebih lanjut

## KEBIJAKAN
- Sistem prabayar (bayar dulu baru pakai)
- Invoice terbit tgl 1, jatuh tempo tgl 20
- Minimal berlangganan 12 bulan
- Pemasangan ± 1-3 hari kerja
- Modem wajib dikembalikan jika berhenti
- Maksimal tarikan kabel 250m
`

// Generate produces a persona reply following an instruction. includeKB
// appends the product knowledge base to the system prompt. Errors degrade
// to FallbackReply.
func (o *Oracle) Generate(ctx context.Context, instruction, message, convContext string, includeKB bool) string {
	system := persona
	if includeKB {
		system += "\n\nKNOWLEDGE BASE:\n" + knowledgeBase
	}
	if convContext != "" {
		system += "\n\nCONTEXT:\n" + convContext
	}
	system += "\n\nINSTRUCTION:\n" + instruction

	out, err := o.client.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		log.Printf("[Oracle] ❌ generate failed: %v", err)
		return FallbackReply
	}
	return strings.TrimSpace(out)
}

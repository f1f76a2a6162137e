package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFormLabeled(t *testing.T) {
	id, desc := extractForm("ID: C650AD\nGangguan: internet mati dari pagi")
	assert.Equal(t, "C650AD", id)
	assert.Equal(t, "internet mati dari pagi", desc)
}

func TestExtractFormLabeledVariants(t *testing.T) {
	id, desc := extractForm("id pelanggan = IN-2024-77\nkendala: wifi putus nyambung terus")
	assert.Equal(t, "IN-2024-77", id)
	assert.Equal(t, "wifi putus nyambung terus", desc)
}

func TestExtractFormFallbackUnlabeled(t *testing.T) {
	id, desc := extractForm("C650AD internet mati total sejak semalam")
	assert.Equal(t, "C650AD", id)
	assert.Equal(t, "internet mati total sejak semalam", desc)
}

func TestExtractFormIDOnly(t *testing.T) {
	id, desc := extractForm("ID: C650AD")
	assert.Equal(t, "C650AD", id)
	assert.Empty(t, desc)
}

func TestExtractFormNoID(t *testing.T) {
	id, desc := extractForm("internet saya mati total dari kemarin")
	assert.Empty(t, id)
	assert.Empty(t, desc)
}

func TestExtractFormShortRemainderNotDescription(t *testing.T) {
	id, desc := extractForm("C650AD mati")
	assert.Equal(t, "C650AD", id)
	assert.Empty(t, desc)
}

func TestExtractFormRejectsPureWordsAndNumbers(t *testing.T) {
	id, _ := extractForm("ID: pelangganku")
	assert.Empty(t, id)

	id, _ = extractForm("nomor saya 081234567890 internet mati")
	assert.Empty(t, id)
}

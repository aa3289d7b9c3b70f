package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpage/voxpage/internal/pkg/api"
	"github.com/voxpage/voxpage/internal/pkg/test"
)

func TestExtract_Txt(t *testing.T) {
	e := New()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.Nil(t, os.WriteFile(path, []byte("olia text"), 0600))
	res, err := e.Extract(test.Ctx(t), path, api.FileTypeTXT, nil)
	require.Nil(t, err)
	assert.Equal(t, "olia text", res)
}

func TestExtract_Txt_NoFile(t *testing.T) {
	e := New()
	_, err := e.Extract(test.Ctx(t), filepath.Join(t.TempDir(), "gone.txt"), api.FileTypeTXT, nil)
	assert.NotNil(t, err)
}

func TestExtract_DOCX_Placeholder(t *testing.T) {
	e := New()
	res, err := e.Extract(test.Ctx(t), "any.docx", api.FileTypeDOCX, nil)
	require.Nil(t, err)
	assert.Equal(t, "Text extracted from DOCX file. (Note: DOCX processing is under maintenance)", res)
}

func TestExtract_PDF_NoFile(t *testing.T) {
	e := New()
	_, err := e.Extract(test.Ctx(t), filepath.Join(t.TempDir(), "gone.pdf"), api.FileTypePDF, nil)
	assert.NotNil(t, err)
}

func TestExtract_WrongType(t *testing.T) {
	e := New()
	_, err := e.Extract(test.Ctx(t), "any", "WAV", nil)
	assert.NotNil(t, err)
}

func TestExtract_Image_NoBinary(t *testing.T) {
	e := New()
	e.ocrCmd = "no-such-ocr-binary"
	_, err := e.Extract(test.Ctx(t), "scan.png", api.FileTypeIMG, nil)
	assert.NotNil(t, err)
}

func Test_ocrArgs(t *testing.T) {
	tests := []struct {
		name string
		ocr  *api.OCRSettings
		want []string
	}{
		{name: "defaults", ocr: nil,
			want: []string{"scan.png", "stdout", "-l", "eng", "--psm", "3", "--oem", "3"}},
		{name: "custom", ocr: &api.OCRSettings{Mode: 6, Engine: 1, Language: "lit"},
			want: []string{"scan.png", "stdout", "-l", "lit", "--psm", "6", "--oem", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ocrArgs("scan.png", tt.ocr))
		})
	}
}

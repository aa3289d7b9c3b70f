package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/ledongthuc/pdf"
	"github.com/voxpage/voxpage/internal/pkg/api"
)

// docxPlaceholder is returned for every DOCX upload while the real parser is down
const docxPlaceholder = "Text extracted from DOCX file. (Note: DOCX processing is under maintenance)"

// Extractor routes a stored file to the matching text extraction backend
type Extractor struct {
	ocrCmd string
}

// New creates an extractor using the tesseract binary for image recognition
func New() *Extractor {
	return &Extractor{ocrCmd: "tesseract"}
}

// Extract returns plain text of the file at path according to its declared type tag.
// Image recognition starts a fresh OCR process per call.
// PDF extraction reads the embedded text layer only - image-only PDFs yield empty text.
func (e *Extractor) Extract(ctx context.Context, path, fileType string, ocr *api.OCRSettings) (string, error) {
	defer goapp.Estimate("extract " + fileType)()
	switch fileType {
	case api.FileTypeTXT:
		return e.extractTxt(path)
	case api.FileTypePDF:
		return e.extractPDF(path)
	case api.FileTypeIMG:
		return e.extractImage(ctx, path, ocr)
	case api.FileTypeDOCX:
		return docxPlaceholder, nil
	}
	return "", fmt.Errorf("unsupported file type '%s'", fileType)
}

func (e *Extractor) extractTxt(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("can't extract text: %w", err)
	}
	return string(b), nil
}

func (e *Extractor) extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("can't extract text: %w", err)
	}
	defer f.Close()
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			goapp.Log.Warn().Err(err).Int("page", i).Msg("skip pdf page")
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (e *Extractor) extractImage(ctx context.Context, path string, ocr *api.OCRSettings) (string, error) {
	if _, err := exec.LookPath(e.ocrCmd); err != nil {
		return "", fmt.Errorf("can't extract text: %w", err)
	}
	args := ocrArgs(path, ocr)
	goapp.Log.Info().Strs("args", args).Msg("run ocr")
	cmd := exec.CommandContext(ctx, e.ocrCmd, args...)
	var errSB strings.Builder
	cmd.Stderr = &errSB
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("can't extract text: %w: %s", err, strings.TrimSpace(errSB.String()))
	}
	return string(out), nil
}

// ocrArgs builds the recognition invocation from the settings, defaults apply
func ocrArgs(path string, ocr *api.OCRSettings) []string {
	s := api.DefaultOCRSettings()
	if ocr != nil {
		s = *ocr
	}
	return []string{path, "stdout",
		"-l", s.Language,
		"--psm", strconv.Itoa(s.Mode),
		"--oem", strconv.Itoa(s.Engine)}
}

package post

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"unicode/utf8"

	"github.com/a-h/briefserver/artifact"
	"github.com/a-h/briefserver/models"
	"github.com/a-h/briefserver/pdftext"
	"github.com/a-h/respond"
)

const (
	DetailInvalidKind   = "Invalid kind; must be 'brief' or 'outline'."
	DetailNotPDF        = "Only PDF files are supported."
	DetailNoText        = "Could not extract text from the PDF."
	DetailUnreadablePDF = "Could not read the PDF."
	DetailInvalidForm   = "Expected a multipart form with 'kind' and 'file' fields."
	DetailTooLarge      = "The uploaded file is too large."
	DetailGenerate      = "Failed to generate content."
)

// DefaultMaxUploadBytes is the largest request body accepted by default.
const DefaultMaxUploadBytes = 20 << 20

var pdfContentTypes = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

func New(log *slog.Logger, generator *artifact.Generator, maxChars int, maxUploadBytes int64) Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return Handler{
		log:            log,
		generator:      generator,
		maxChars:       maxChars,
		maxUploadBytes: maxUploadBytes,
	}
}

type Handler struct {
	log            *slog.Logger
	generator      *artifact.Generator
	maxChars       int
	maxUploadBytes int64
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.log.Warn("failed to parse multipart form", slog.Any("error", err))
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeDetail(w, DetailTooLarge, http.StatusBadRequest)
			return
		}
		writeDetail(w, DetailInvalidForm, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	kind := models.Kind(r.FormValue("kind"))
	if !kind.Valid() {
		h.log.Info("invalid kind", slog.String("kind", string(kind)))
		writeDetail(w, DetailInvalidKind, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.log.Info("file not provided", slog.Any("error", err))
		writeDetail(w, DetailInvalidForm, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isPDF(header.Header.Get("Content-Type")) {
		h.log.Info("unsupported content type", slog.String("contentType", header.Header.Get("Content-Type")))
		writeDetail(w, DetailNotPDF, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error("failed to read upload", slog.Any("error", err))
		writeDetail(w, DetailInvalidForm, http.StatusBadRequest)
		return
	}

	text, err := pdftext.Extract(data, h.maxChars)
	if err != nil {
		h.log.Info("failed to extract text", slog.String("filename", header.Filename), slog.Any("error", err))
		writeDetail(w, DetailUnreadablePDF, http.StatusBadRequest)
		return
	}

	h.log.Info("generating artifact",
		slog.String("kind", string(kind)),
		slog.String("filename", header.Filename),
		slog.Int("size", len(data)),
		slog.Int("excerptLength", utf8.RuneCountInString(text)))

	resp, err := h.generator.Generate(r.Context(), kind, text, header.Filename)
	if err != nil {
		if errors.Is(err, artifact.ErrEmptyInput) {
			writeDetail(w, DetailNoText, http.StatusBadRequest)
			return
		}
		var ike *artifact.InvalidKindError
		if errors.As(err, &ike) {
			writeDetail(w, DetailInvalidKind, http.StatusBadRequest)
			return
		}
		h.log.Error("failed to generate artifact", slog.Any("error", err))
		writeDetail(w, DetailGenerate, http.StatusInternalServerError)
		return
	}

	respond.WithJSON(w, resp, http.StatusOK)
}

func isPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return pdfContentTypes[mediaType]
}

func writeDetail(w http.ResponseWriter, detail string, status int) {
	respond.WithJSON(w, models.ErrorResponse{Detail: detail}, status)
}

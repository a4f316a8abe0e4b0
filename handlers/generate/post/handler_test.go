package post

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/a-h/briefserver/artifact"
	"github.com/a-h/briefserver/models"
	"github.com/a-h/briefserver/pdftext"
	"github.com/a-h/briefserver/pdftext/pdftexttest"
	"github.com/google/go-cmp/cmp"
	"github.com/tmc/langchaingo/llms"
)

type fakeLLM struct {
	content string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, tc.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type upload struct {
	kind        string
	filename    string
	contentType string
	data        []byte
}

func newRequest(t *testing.T, u upload) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("kind", u.kind); err != nil {
		t.Fatal(err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+u.filename+`"`)
	h.Set("Content-Type", u.contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = part.Write(u.data); err != nil {
		t.Fatal(err)
	}
	if err = mw.Close(); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func newHandler(llm llms.Model) Handler {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(log, artifact.New(llm), pdftext.DefaultMaxChars, DefaultMaxUploadBytes)
}

func TestHandler(t *testing.T) {
	validPDF := pdftexttest.New("Marbury v. Madison establishes judicial review.")

	t.Run("an outline is generated from a PDF", func(t *testing.T) {
		llm := &fakeLLM{content: "I. Judicial review"}
		w := httptest.NewRecorder()
		newHandler(llm).ServeHTTP(w, newRequest(t, upload{
			kind:        "outline",
			filename:    "con-law.pdf",
			contentType: "application/pdf",
			data:        validPDF,
		}))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		var actual models.GeneratePostResponse
		if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		expected := models.GeneratePostResponse{
			Title:   "con-law.pdf – Outline",
			Content: "I. Judicial review",
			Kind:    models.KindOutline,
		}
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Error(diff)
		}
		if len(llm.prompts) != 2 {
			t.Fatalf("expected a system and user prompt, got %d prompts", len(llm.prompts))
		}
		if !strings.Contains(llm.prompts[1], "Marbury v. Madison establishes judicial review.") {
			t.Errorf("expected the PDF text in the user prompt, got %q", llm.prompts[1])
		}
		if !strings.Contains(llm.prompts[1], "con-law.pdf") {
			t.Errorf("expected the filename in the user prompt, got %q", llm.prompts[1])
		}
	})
	t.Run("the x-pdf content type is accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		newHandler(&fakeLLM{content: "brief"}).ServeHTTP(w, newRequest(t, upload{
			kind:        "brief",
			filename:    "torts.pdf",
			contentType: "application/x-pdf",
			data:        validPDF,
		}))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
	})

	errorTests := []struct {
		name           string
		upload         upload
		llm            *fakeLLM
		expectedStatus int
		expectedDetail string
		expectLLMCall  bool
	}{
		{
			name: "invalid kinds are rejected",
			upload: upload{
				kind:        "essay",
				filename:    "con-law.pdf",
				contentType: "application/pdf",
				data:        validPDF,
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: DetailInvalidKind,
		},
		{
			name: "non-PDF uploads are rejected",
			upload: upload{
				kind:        "brief",
				filename:    "notes.txt",
				contentType: "text/plain",
				data:        []byte("Marbury v. Madison establishes judicial review."),
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Only PDF files are supported.",
		},
		{
			name: "PDFs without text are rejected",
			upload: upload{
				kind:        "brief",
				filename:    "scan.pdf",
				contentType: "application/pdf",
				data:        pdftexttest.New(""),
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Could not extract text from the PDF.",
		},
		{
			name: "empty uploads are rejected as having no text",
			upload: upload{
				kind:        "outline",
				filename:    "empty.pdf",
				contentType: "application/pdf",
				data:        nil,
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: DetailNoText,
		},
		{
			name: "unreadable PDFs are rejected",
			upload: upload{
				kind:        "outline",
				filename:    "broken.pdf",
				contentType: "application/pdf",
				data:        []byte("not really a PDF"),
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: DetailUnreadablePDF,
		},
		{
			name: "LLM failures are server errors",
			upload: upload{
				kind:        "outline",
				filename:    "con-law.pdf",
				contentType: "application/pdf",
				data:        validPDF,
			},
			llm:            &fakeLLM{err: errors.New("rate limit exceeded")},
			expectedStatus: http.StatusInternalServerError,
			expectedDetail: DetailGenerate,
			expectLLMCall:  true,
		},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			llm := tt.llm
			if llm == nil {
				llm = &fakeLLM{content: "unexpected"}
			}
			w := httptest.NewRecorder()
			newHandler(llm).ServeHTTP(w, newRequest(t, tt.upload))
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var actual models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
				t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
			}
			if diff := cmp.Diff(models.ErrorResponse{Detail: tt.expectedDetail}, actual); diff != "" {
				t.Error(diff)
			}
			if called := len(llm.prompts) > 0; called != tt.expectLLMCall {
				t.Errorf("expected LLM called to be %v, got %v", tt.expectLLMCall, called)
			}
		})
	}
}

func TestHandlerInvalidRequests(t *testing.T) {
	t.Run("requests that aren't multipart forms are rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"kind":"brief"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		newHandler(&fakeLLM{}).ServeHTTP(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
	t.Run("a missing file is rejected", func(t *testing.T) {
		body := new(bytes.Buffer)
		mw := multipart.NewWriter(body)
		if err := mw.WriteField("kind", "brief"); err != nil {
			t.Fatal(err)
		}
		if err := mw.Close(); err != nil {
			t.Fatal(err)
		}
		r := httptest.NewRequest(http.MethodPost, "/api/generate", body)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		newHandler(&fakeLLM{}).ServeHTTP(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
	t.Run("uploads over the size limit are rejected", func(t *testing.T) {
		log := slog.New(slog.NewJSONHandler(io.Discard, nil))
		h := New(log, artifact.New(&fakeLLM{}), pdftext.DefaultMaxChars, 1024)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, newRequest(t, upload{
			kind:        "brief",
			filename:    "big.pdf",
			contentType: "application/pdf",
			data:        bytes.Repeat([]byte("a"), 4096),
		}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{contentType: "application/pdf", expected: true},
		{contentType: "application/x-pdf", expected: true},
		{contentType: "Application/PDF", expected: true},
		{contentType: "application/pdf; name=a.pdf", expected: true},
		{contentType: "text/plain", expected: false},
		{contentType: "application/octet-stream", expected: false},
		{contentType: "", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if actual := isPDF(tt.contentType); actual != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, actual)
			}
		})
	}
}

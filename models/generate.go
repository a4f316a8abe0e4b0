package models

// Kind of study artifact to generate.
type Kind string

const (
	KindBrief   Kind = "brief"
	KindOutline Kind = "outline"
)

// Kinds lists every supported artifact kind.
var Kinds = []Kind{KindBrief, KindOutline}

func (k Kind) Valid() bool {
	return k == KindBrief || k == KindOutline
}

// Label is the human readable name used in artifact titles.
func (k Kind) Label() string {
	switch k {
	case KindBrief:
		return "Case Brief"
	case KindOutline:
		return "Outline"
	}
	return string(k)
}

// GeneratePostResponse is the artifact returned by POST /api/generate.
type GeneratePostResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// GeneratePostRequest is sent as a multipart form, not JSON. ContentType
// is the type declared for the file, application/pdf if empty.
type GeneratePostRequest struct {
	Kind        Kind
	Filename    string
	ContentType string
	File        []byte
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/a-h/briefserver/models"
	"github.com/a-h/jsonapi"
)

func New(baseURL string) Client {
	return Client{
		baseURL: baseURL,
	}
}

type Client struct {
	baseURL string
}

// Error is returned when the server responds with a non-2xx status.
type Error struct {
	Status int
	Detail string
}

func (e Error) Error() string {
	return fmt.Sprintf("client: unexpected status %d: %s", e.Status, e.Detail)
}

func (c Client) GeneratePost(ctx context.Context, req models.GeneratePostRequest) (resp models.GeneratePostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("api", "generate").String()
	if err != nil {
		return resp, err
	}
	body, contentType, err := newMultipartBody(req)
	if err != nil {
		return resp, fmt.Errorf("failed to create request body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Content-Type", contentType))
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return resp, newError(res)
	}
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

func newMultipartBody(req models.GeneratePostRequest) (body *bytes.Buffer, contentType string, err error) {
	body = new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	if err = mw.WriteField("kind", string(req.Kind)); err != nil {
		return nil, "", err
	}
	fileContentType := req.ContentType
	if fileContentType == "" {
		fileContentType = "application/pdf"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.Filename))
	h.Set("Content-Type", fileContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err = part.Write(req.File); err != nil {
		return nil, "", err
	}
	if err = mw.Close(); err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}

func newError(res *http.Response) error {
	body, _ := io.ReadAll(res.Body)
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Detail == "" {
		return Error{Status: res.StatusCode, Detail: string(body)}
	}
	return Error{Status: res.StatusCode, Detail: er.Detail}
}

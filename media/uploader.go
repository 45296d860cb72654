// Package media turns local image references into URLs the backend will store.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL     = "https://api.cloudinary.com/v1_1"
	defaultTimeout     = 60 * time.Second
	defaultConcurrency = 4
	maxImageBytes      = 10 << 20
)

type Uploader struct {
	cloudName   string
	preset      string
	baseURL     string
	client      *http.Client
	concurrency int
	logger      zerolog.Logger
}

type UploaderOption func(*Uploader)

func WithHTTPClient(c *http.Client) UploaderOption {
	return func(u *Uploader) {
		u.client = c
	}
}

// WithBaseURL points uploads at a Cloudinary-compatible endpoint.
func WithBaseURL(baseURL string) UploaderOption {
	return func(u *Uploader) {
		u.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithConcurrency(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

func WithLogger(logger zerolog.Logger) UploaderOption {
	return func(u *Uploader) {
		u.logger = logger
	}
}

// NewUploader returns an uploader for an unsigned Cloudinary preset. With an
// empty cloud name or preset it runs in development mode: local files become
// data URIs and nothing leaves the machine.
func NewUploader(cloudName, preset string, options ...UploaderOption) *Uploader {
	u := &Uploader{
		cloudName:   cloudName,
		preset:      preset,
		baseURL:     DefaultBaseURL,
		client:      &http.Client{Timeout: defaultTimeout},
		concurrency: defaultConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

// Configured reports whether uploads go to Cloudinary.
func (u *Uploader) Configured() bool {
	return u.cloudName != "" && u.preset != ""
}

// Upload resolves one reference. Remote URLs pass through untouched. Failures
// are *apierror.UploadError.
func (u *Uploader) Upload(ctx context.Context, ref string) (string, error) {
	if isRemote(ref) {
		return ref, nil
	}
	if !u.Configured() {
		if strings.HasPrefix(ref, "data:") {
			return ref, nil
		}
		uri, err := dataURI(ref)
		if err != nil {
			return "", &apierror.UploadError{Ref: ref, Err: err}
		}
		return uri, nil
	}

	url, err := u.upload(ctx, ref)
	if err != nil {
		return "", &apierror.UploadError{Ref: ref, Err: err}
	}
	return url, nil
}

// ResolveAll uploads refs concurrently and returns one entry per ref, in
// order. A failed upload keeps the original reference.
func (u *Uploader) ResolveAll(ctx context.Context, refs []string) []string {
	out := make([]string, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			resolved, err := u.Upload(ctx, ref)
			if err != nil {
				u.logger.Warn().Err(err).Int("index", i).Msg("image upload failed, keeping local reference")
				resolved = ref
			}
			out[i] = resolved
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (u *Uploader) upload(ctx context.Context, ref string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := writeFile(form, ref); err != nil {
		return "", err
	}
	if err := form.WriteField("upload_preset", u.preset); err != nil {
		return "", errors.Wrap(err, "Uploader.upload preset field")
	}
	if err := form.Close(); err != nil {
		return "", errors.Wrap(err, "Uploader.upload close form")
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", u.baseURL, u.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", errors.Wrap(err, "Uploader.upload new request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", &apierror.NetworkError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "Uploader.upload read response")
	}

	var result struct {
		SecureURL string `json:"secure_url"`
		Error     *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if result.Error != nil && result.Error.Message != "" {
			return "", errors.New(result.Error.Message)
		}
		return "", errors.Errorf("cloudinary upload failed: %d", resp.StatusCode)
	}
	if result.SecureURL == "" {
		return "", errors.New("cloudinary upload failed: no URL returned")
	}
	return result.SecureURL, nil
}

func writeFile(form *multipart.Writer, ref string) error {
	if strings.HasPrefix(ref, "data:") {
		// Cloudinary accepts data URIs as a plain file field.
		return errors.Wrap(form.WriteField("file", ref), "writeFile data uri")
	}
	data, err := readLocal(ref)
	if err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", filepath.Base(localPath(ref)))
	if err != nil {
		return errors.Wrap(err, "writeFile create part")
	}
	_, err = part.Write(data)
	return errors.Wrap(err, "writeFile write part")
}

func dataURI(ref string) (string, error) {
	data, err := readLocal(ref)
	if err != nil {
		return "", err
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath(ref))))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func readLocal(ref string) ([]byte, error) {
	path := localPath(ref)
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "readLocal stat")
	}
	if info.Size() > maxImageBytes {
		return nil, errors.Errorf("image %s is larger than %d bytes", path, maxImageBytes)
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrap(err, "readLocal read")
}

func localPath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

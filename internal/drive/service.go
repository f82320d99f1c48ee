package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

// maxExport bounds a single exported or downloaded file.
const maxExport = 64 << 20

var ErrNoCredentials = errors.New("no drive credentials")

const listFields = "files(id,name,mimeType,modifiedTime,createdTime,webViewLink,parents)"

// Service implements Lister and Exporter over the Drive v3 API with
// read-only scope and shared drive support.
type Service struct {
	api     *drive.Service
	backoff utils.Backoff
}

// NewService authenticates with a service account key file, or with the
// JSON in GOOGLE_SERVICE_ACCOUNT_JSON when the file does not exist.
func NewService(ctx context.Context, credentialsFile string, b utils.Backoff) (*Service, error) {
	var cred option.ClientOption
	switch {
	case fileExists(credentialsFile):
		cred = option.WithCredentialsFile(credentialsFile)
	case os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") != "":
		cred = option.WithCredentialsJSON([]byte(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")))
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoCredentials, credentialsFile)
	}
	return NewServiceWithOptions(ctx, b, cred, option.WithScopes(drive.DriveReadonlyScope))
}

func NewServiceWithOptions(ctx context.Context, b utils.Backoff, opts ...option.ClientOption) (*Service, error) {
	api, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Service{api: api, backoff: b}, nil
}

func (s *Service) List(ctx context.Context, q string, pageSize int) ([]File, error) {
	var out []File
	err := s.retry(ctx, func() error {
		res, err := s.api.Files.List().
			Q(q).
			PageSize(int64(pageSize)).
			Fields(listFields).
			OrderBy("modifiedTime desc").
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, f := range res.Files {
			out = append(out, fromAPI(f))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drive list: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (File, error) {
	var out File
	err := s.retry(ctx, func() error {
		f, err := s.api.Files.Get(id).Fields("id,name,mimeType,modifiedTime").SupportsAllDrives(true).Context(ctx).Do()
		if err != nil {
			return err
		}
		out = fromAPI(f)
		return nil
	})
	return out, err
}

func (s *Service) Export(ctx context.Context, id, mimeType string) ([]byte, error) {
	var out []byte
	err := s.retry(ctx, func() error {
		resp, err := s.api.Files.Export(id, mimeType).Context(ctx).Download()
		if err != nil {
			return err
		}
		out, err = readBody(resp)
		return err
	})
	return out, err
}

func (s *Service) Download(ctx context.Context, id string) ([]byte, error) {
	var out []byte
	err := s.retry(ctx, func() error {
		resp, err := s.api.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return err
		}
		out, err = readBody(resp)
		return err
	})
	return out, err
}

// retry keeps going on 5xx and 429 only.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	return s.backoff.Do(ctx, func(int) error {
		err := fn()
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code < 500 && gerr.Code != http.StatusTooManyRequests {
			return utils.Permanent(err)
		}
		return err
	})
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxExport+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxExport {
		return nil, fmt.Errorf("file exceeds %d bytes", maxExport)
	}
	return b, nil
}

func fromAPI(f *drive.File) File {
	return File{ID: f.Id, Name: f.Name, MimeType: f.MimeType, ModifiedTime: f.ModifiedTime, WebViewLink: f.WebViewLink}
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

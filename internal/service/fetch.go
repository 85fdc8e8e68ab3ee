package service

import (
	"SkyVault/config"
	"SkyVault/internal/storage"
	"SkyVault/model"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// HTTPStatusError is returned for non-200 HTTP responses.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

func hostAllowed(host string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	host = strings.ToLower(strings.TrimSpace(host))
	for _, entry := range allowlist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, ".") {
			if strings.HasSuffix(host, entry) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}

func isLocalHostname(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "localhost" || host == "localhost.localdomain" {
		return true
	}
	if strings.HasSuffix(host, ".local") {
		return true
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsMulticast() || ip.IsLinkLocalMulticast() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	return false
}

func validateFetchURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", ErrInvalidArgument)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %w", ErrInvalidArgument)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host: %w", ErrInvalidArgument)
	}
	if !hostAllowed(host, config.AppConfig.FetchAllowedHosts) {
		return nil, fmt.Errorf("host not allowed: %w", ErrInvalidArgument)
	}
	if config.AppConfig.FetchAllowPrivate {
		return u, nil
	}
	if isLocalHostname(host) {
		return nil, fmt.Errorf("host not allowed: %w", ErrInvalidArgument)
	}
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("ip not allowed: %w", ErrInvalidArgument)
		}
		return u, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("host not resolvable: %w", ErrInvalidArgument)
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("ip not allowed: %w", ErrInvalidArgument)
		}
	}
	return u, nil
}

// ValidateFetchSourceURL validates an offline-fetch source URL before task creation.
func ValidateFetchSourceURL(rawURL string) error {
	_, err := validateFetchURL(rawURL)
	return err
}

// FetchToStaging streams a URL into the task's staging object, hashing the
// bytes on the way through. The content hash is only known once the body has
// been fully read, which is why the object lands in staging first.
func FetchToStaging(ctx context.Context, task *model.FetchTask) (hash string, size int64, err error) {
	parsed, err := validateFetchURL(task.Source)
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", 0, err
	}
	client := &http.Client{
		Timeout: config.AppConfig.FetchHTTPTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			_, err := validateFetchURL(req.URL.String())
			return err
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}
	if config.AppConfig.FetchMaxBytes > 0 {
		if resp.ContentLength < 0 {
			return "", 0, errors.New("unknown content length")
		}
		if resp.ContentLength > config.AppConfig.FetchMaxBytes {
			return "", 0, errors.New("content too large")
		}
	}
	if storage.Default == nil {
		return "", 0, errors.New("storage not initialized")
	}

	// Hash and count while streaming; the response may omit Content-Length
	// and the true size is only known once the body is drained.
	hasher := sha256.New()
	counter := &countingReader{r: io.TeeReader(resp.Body, hasher)}
	if err := storage.Default.PutObject(
		ctx,
		config.AppConfig.BucketName,
		task.StagingKey,
		counter,
		resp.ContentLength,
		storage.PutOptions{
			ContentType: resp.Header.Get("Content-Type"),
		},
	); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), counter.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// PromoteStaging moves a staged object to its content key. Server-side copy;
// the staging object is removed afterwards. If another upload already backed
// the content key the staged copy is simply dropped.
func PromoteStaging(ctx context.Context, stagingKey, hash string) error {
	if storage.Default == nil {
		return errors.New("storage not initialized")
	}
	bucket := config.AppConfig.BucketName
	contentKey := BuildContentKey(hash)
	_, exists, err := storage.Default.StatObject(ctx, bucket, contentKey)
	if err != nil {
		return err
	}
	if !exists {
		if err := storage.Default.ComposeObject(
			ctx,
			storage.CopyDest{Bucket: bucket, Object: contentKey},
			storage.CopySource{Bucket: bucket, Object: stagingKey},
		); err != nil {
			return err
		}
	}
	return storage.Default.RemoveObject(ctx, bucket, stagingKey)
}

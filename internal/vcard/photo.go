package vcard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// PhotoResolver looks up the image behind a profile image URL. A nil result means that no photo
// shall be embedded; resolvers never fail the export.
type PhotoResolver interface {
	Resolve(ctx context.Context, imageURL string) *Photo
}

// PhotoCache stores resolved photos by URL.
type PhotoCache interface {
	Get(ctx context.Context, imageURL string) (*Photo, bool, error)
	Set(ctx context.Context, imageURL string, photo *Photo) error
}

// ResolverConfig holds the limits for fetching profile images.
type ResolverConfig struct {
	Timeout  time.Duration // per fetch, including reading the body
	MaxBytes int64         // larger images are not embedded
}

// DefaultResolverConfig returns the limits used when nothing else is configured.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Timeout:  5 * time.Second,
		MaxBytes: 5 << 20,
	}
}

var (
	errUnsupportedScheme = errors.New("unsupported URL scheme")
	errPhotoTooLarge     = errors.New("photo exceeds size limit")
)

// statusError is a non-2xx answer of an image host.
type statusError struct {
	status string
	code   int
}

func (e *statusError) Error() string {
	return "image host answered " + e.status
}

// hostHealthy reports whether err leaves the image host in good standing. A missing or oversized
// image is a problem of that one URL, and a caller going away says nothing about the host.
func hostHealthy(err error) bool {
	var statusErr *statusError
	switch {
	case err == nil:
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, errPhotoTooLarge):
		return true
	case errors.As(err, &statusErr):
		return statusErr.code < http.StatusInternalServerError
	default:
		return false
	}
}

// HTTPPhotoResolver fetches profile images over HTTP. Every image host gets its own circuit
// breaker, so a dead host is skipped quickly instead of costing a timeout per contact.
type HTTPPhotoResolver struct {
	client *http.Client
	config ResolverConfig
	cache  PhotoCache
	log    *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewHTTPPhotoResolver creates a resolver. The cache may be nil.
func NewHTTPPhotoResolver(config ResolverConfig, cache PhotoCache, log *zap.Logger) *HTTPPhotoResolver {
	if config.Timeout <= 0 || config.MaxBytes <= 0 {
		config = DefaultResolverConfig()
	}
	return &HTTPPhotoResolver{
		client:   newPhotoClient(config.Timeout),
		config:   config,
		cache:    cache,
		log:      log,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// newPhotoClient builds an HTTP client with connection pooling for the image hosts.
func newPhotoClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Resolve returns the photo behind imageURL, or nil if it cannot be fetched in time.
func (r *HTTPPhotoResolver) Resolve(ctx context.Context, imageURL string) *Photo {
	if imageURL == "" {
		return nil
	}
	if r.cache != nil {
		photo, found, err := r.cache.Get(ctx, imageURL)
		if err != nil {
			r.log.Warn("photo cache lookup failed", zap.String("url", imageURL), zap.Error(err))
		} else if found {
			return photo
		}
	}

	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		r.log.Warn("omitting photo", zap.String("url", imageURL), zap.Error(errUnsupportedScheme))
		return nil
	}

	photo, err := r.fetchGuarded(ctx, parsed.Host, imageURL)
	if err != nil {
		r.log.Warn("omitting photo", zap.String("url", imageURL), zap.Error(err))
		return nil
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, imageURL, photo); err != nil {
			r.log.Warn("photo cache update failed", zap.String("url", imageURL), zap.Error(err))
		}
	}
	return photo
}

// fetchGuarded fetches through the circuit breaker of the host. While the breaker is half-open
// only one trial request passes; the others fetch directly instead of losing their photo.
func (r *HTTPPhotoResolver) fetchGuarded(ctx context.Context, host string, imageURL string) (*Photo, error) {
	result, err := r.breaker(host).Execute(func() (interface{}, error) {
		return r.fetch(ctx, imageURL)
	})
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return r.fetch(ctx, imageURL)
	}
	if err != nil {
		return nil, err
	}
	return result.(*Photo), nil
}

func (r *HTTPPhotoResolver) fetch(ctx context.Context, imageURL string) (*Photo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &statusError{status: res.Status, code: res.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, r.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read image: %w", err)
	}
	if int64(len(data)) > r.config.MaxBytes {
		return nil, errPhotoTooLarge
	}
	return &Photo{Data: data, ContentType: res.Header.Get("Content-Type")}, nil
}

// breaker returns the circuit breaker for an image host, creating it on first use.
func (r *HTTPPhotoResolver) breaker(host string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: hostHealthy,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.log.Info("image host circuit breaker changed state",
				zap.String("host", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	r.breakers[host] = cb
	return cb
}

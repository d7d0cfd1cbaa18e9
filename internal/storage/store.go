package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/mutige-mungos/mungo-shift/internal/models"
)

// DefaultPath is where the file store keeps the seen set when no location is configured.
const DefaultPath = ".data/seen.json"

// Store persists the set of codes observed by earlier runs. The set only grows.
type Store interface {
	GetSeen(ctx context.Context) (map[string]struct{}, error)
	SaveSeen(ctx context.Context, codes []string) error
	Close() error
}

// SeenReader is the read half of Store.
type SeenReader interface {
	GetSeen(ctx context.Context) (map[string]struct{}, error)
}

// DiffNew returns the codes not yet in the seen set, keeping input order.
func DiffNew(ctx context.Context, store SeenReader, codes []string) ([]string, error) {
	seen, err := store.GetSeen(ctx)
	if err != nil {
		return nil, err
	}
	fresh := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; !ok {
			fresh = append(fresh, code)
		}
	}
	return fresh, nil
}

// Options configures Open.
type Options struct {
	// Location is DATABASE_URL: a file path, a file: URL, a postgres URL or
	// firestore://<project>.
	Location string
	// ProjectID is used for firestore:// locations without a project.
	ProjectID string
	// CredentialsFile is an optional service account file for Firestore.
	CredentialsFile string
}

// Open picks a backend from the location's scheme.
func Open(ctx context.Context, opts Options) (Store, error) {
	location := strings.TrimSpace(opts.Location)

	switch {
	case location == "":
		return asStore(NewFileStore(DefaultPath))
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		return asStore(NewPostgresStore(ctx, location))
	case strings.HasPrefix(location, "firestore://"):
		projectID := strings.TrimPrefix(location, "firestore://")
		projectID = strings.Trim(projectID, "/")
		if projectID == "" {
			projectID = opts.ProjectID
		}
		return asStore(NewFirestoreStore(ctx, projectID, opts.CredentialsFile))
	}

	path, err := ResolveFilePath(location)
	if err != nil {
		return nil, err
	}
	return asStore(NewFileStore(path))
}

// asStore keeps a failed constructor from returning a typed nil Store.
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenWithRetry calls Open up to attempts times, doubling the wait from base
// between tries. Unsupported locations fail at once.
func OpenWithRetry(ctx context.Context, opts Options, attempts int, base time.Duration) (Store, error) {
	attempts = max(attempts, 1)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		store, err := Open(ctx, opts)
		if err == nil {
			return store, nil
		}
		if errors.Is(err, models.ErrUnsupportedStore) {
			return nil, err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		backoff := base << attempt
		slog.Warn("Failed to open seen-code store, retrying", "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("failed to open store after %d attempts: %w", attempts, lastErr)
}

// ResolveFilePath turns a file: URL or plain path into an absolute path.
// Other URL schemes are rejected.
func ResolveFilePath(location string) (string, error) {
	if strings.HasPrefix(location, "file:") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("%w: invalid file URL %q: %v", models.ErrUnsupportedStore, location, err)
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return "", fmt.Errorf("%w: file URL %q has no path", models.ErrUnsupportedStore, location)
		}
		return filepath.Abs(filepath.FromSlash(path))
	}
	if strings.Contains(location, "://") {
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedStore, location)
	}
	return filepath.Abs(location)
}

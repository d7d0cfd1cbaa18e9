package storage

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mutige-mungos/mungo-shift/internal/models"
)

const (
	firestoreCollection = "bot_state"
	firestoreDocumentID = "seen_codes"
	firestoreCodesField = "codes"
)

// FirestoreStore keeps the seen set as an array field on a single document.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: firestore store needs a project ID", models.ErrUnsupportedStore)
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) doc() *firestore.DocumentRef {
	return s.client.Collection(firestoreCollection).Doc(firestoreDocumentID)
}

// GetSeen reads the seen set. A missing document is an empty set.
func (s *FirestoreStore) GetSeen(ctx context.Context) (map[string]struct{}, error) {
	snap, err := s.doc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			slog.Info("Seen-codes document not found. Assuming first run.", "collection", firestoreCollection, "doc", firestoreDocumentID)
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("%w: failed to get seen codes: %w", models.ErrStoreUnavailable, err)
	}
	if !snap.Exists() {
		return map[string]struct{}{}, nil
	}

	raw, err := snap.DataAt(firestoreCodesField)
	if err != nil {
		// Document without the field.
		return map[string]struct{}{}, nil
	}
	return seenFromValues(raw), nil
}

// SaveSeen adds codes to the document's array with a server-side union.
func (s *FirestoreStore) SaveSeen(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(codes))
	for _, code := range codes {
		values = append(values, code)
	}

	_, err := s.doc().Set(ctx, map[string]interface{}{
		firestoreCodesField: firestore.ArrayUnion(values...),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("%w: failed to save seen codes: %w", models.ErrStoreUnavailable, err)
	}
	slog.Info("Saved seen codes to Firestore", "count", len(codes))
	return nil
}

// seenFromValues converts a decoded Firestore array into a set, skipping non-strings.
func seenFromValues(raw interface{}) map[string]struct{} {
	seen := make(map[string]struct{})
	values, ok := raw.([]interface{})
	if !ok {
		return seen
	}
	for _, v := range values {
		if code, ok := v.(string); ok {
			seen[code] = struct{}{}
		}
	}
	return seen
}

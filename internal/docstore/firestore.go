package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is a Store backed by Cloud Firestore.
type Firestore struct {
	fs *firestore.Client
}

// NewFirestore connects to projectID. credentialsFile may be empty to use
// application default credentials (or FIRESTORE_EMULATOR_HOST).
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Firestore{fs: fs}, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.fs.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Firestore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	fq := s.fs.Collection(collection).Query
	for _, f := range q.Filters {
		if !validOp(f.Op) {
			return nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
		fq = fq.Where(f.Field, string(f.Op), f.Value)
	}
	for _, o := range q.OrderBy {
		dir := firestore.Asc
		if o.Dir == Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Field, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	out := []Document{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return out, nil
}

func (s *Firestore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.fs.Collection(collection).Add(ctx, toFirestore(data))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *Firestore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.fs.Collection(collection).Doc(id).Set(ctx, toFirestore(data))
	return err
}

func (s *Firestore) Create(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.fs.Collection(collection).Doc(id).Create(ctx, toFirestore(data))
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	return err
}

func (s *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	ups := make([]firestore.Update, 0, len(fields))
	for k, v := range toFirestore(fields) {
		ups = append(ups, firestore.Update{Path: k, Value: v})
	}
	if len(ups) == 0 {
		_, err := s.Get(ctx, collection, id)
		return err
	}
	_, err := s.fs.Collection(collection).Doc(id).Update(ctx, ups)
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *Firestore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.fs.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (s *Firestore) Close() error { return s.fs.Close() }

func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if v == ServerTimestamp {
			v = firestore.ServerTimestamp
		}
		out[k] = v
	}
	return out
}

package filestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/igolaizola/timeslip/pkg/filestore/local"
	"github.com/igolaizola/timeslip/pkg/filestore/s3"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
}

// Store keeps synthesized audio files by id.
type Store struct {
	fs fs
}

func (s *Store) SetMP3(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, MP3(id))
}

func (s *Store) GetMP3(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, MP3(id))
}

// New creates a store. Connection strings are a directory for "local" and
// key:secret@bucket.region for "s3".
func New(ctx context.Context, typ, conn string, debug bool) (*Store, error) {
	var fs fs
	switch typ {
	case "s3":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		var key, secret string
		if split[0] != "" {
			auth := strings.Split(split[0], ":")
			if len(auth) != 2 {
				return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
			}
			key, secret = auth[0], auth[1]
		}
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		candidate, err := s3.New(ctx, key, secret, loc[1], loc[0], debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		candidate, err := local.New(conn, debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}

func MP3(id string) string {
	return id + ".mp3"
}

// Package s3store keeps items as S3 objects under a key prefix, one object
// per item, so session state can be shared by workers that have no common
// filesystem. S3 is last-write-wins per object, which matches the backend
// contract.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hashicorp/go-hclog"

	"github.com/baasic/baasic-go/dto"
)

// s3API This internal interface abstracts the s3 client for easier testing
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

const defaultPollInterval = 2 * time.Second

// Config defines the static properties for an S3 store instance.
type Config struct {
	Region         string
	Bucket         string
	Prefix         string
	Credentials    aws.CredentialsProvider
	ForcePathStyle bool
	Endpoint       string // optional custom endpoint
	PollInterval   time.Duration
	Logger         hclog.Logger
}

// Store is a dto.Backend over one bucket prefix. S3 offers no change
// events to a plain client, so Watch lists the prefix on an interval and
// diffs against the previous snapshot.
type Store struct {
	cfg    Config
	client s3API
	logger hclog.Logger

	mu       sync.Mutex
	watchers map[int]chan dto.Change
	nextID   int
	cancel   context.CancelFunc
}

func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(cfg.Credentials),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newWithAPI(cfg, client), nil
}

func newWithAPI(cfg Config, client s3API) *Store {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Store{
		cfg:      cfg,
		client:   client,
		logger:   cfg.Logger,
		watchers: make(map[int]chan dto.Change),
	}
}

func (s *Store) objectKey(key string) string {
	return s.cfg.Prefix + key
}

func (s *Store) GetItem(key string) (string, bool, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, fmt.Errorf("read s3 object: %w", err)
	}
	return string(data), true, nil
}

func (s *Store) SetItem(key, value string) error {
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   strings.NewReader(value),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

// Watch returns a channel of change notifications and an unsubscribe
// function. The first subscriber starts the poller; the last one leaving
// stops it. A value written and removed within one interval is not
// observed.
func (s *Store) Watch() (<-chan dto.Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan dto.Change, 32)
	s.watchers[id] = ch

	if s.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.poll(ctx)
	}

	unsub := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if c, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(c)
		}
		if len(s.watchers) == 0 && s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	}
	return ch, unsub
}

func (s *Store) poll(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	prev, err := s.snapshot(ctx)
	if err != nil {
		s.logger.Warn("initial list failed", "error", err)
		prev = map[string]string{}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := s.snapshot(ctx)
		if err != nil {
			s.logger.Warn("list failed", "error", err)
			continue
		}

		for key, etag := range next {
			if old, ok := prev[key]; !ok || old != etag {
				s.emit(key)
			}
		}
		for key := range prev {
			if _, ok := next[key]; !ok {
				s.notify(dto.Change{Key: key, NewValue: ""})
			}
		}
		prev = next
	}
}

// snapshot maps item keys to ETags. ETags change on every overwrite, so a
// diff of two snapshots names exactly the mutated keys without fetching
// bodies.
func (s *Store) snapshot(ctx context.Context) (map[string]string, error) {
	items := map[string]string{}
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.cfg.Bucket),
			Prefix:            aws.String(s.cfg.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.cfg.Prefix)
			items[key] = aws.ToString(obj.ETag)
		}
		if out.NextContinuationToken == nil {
			return items, nil
		}
		token = out.NextContinuationToken
	}
}

func (s *Store) emit(key string) {
	value, ok, err := s.GetItem(key)
	if err != nil {
		s.logger.Warn("fetch changed item failed", "key", key, "error", err)
		return
	}
	if !ok {
		// Deleted between list and get; the next diff reports it.
		return
	}
	s.notify(dto.Change{Key: key, NewValue: value})
}

func (s *Store) notify(change dto.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- change:
		default:
		}
	}
}

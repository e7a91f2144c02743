package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/logger"
	"github.com/koustreak/sqlany/internal/schema"
)

// snapshotTimeLayout sorts lexicographically in time order.
const snapshotTimeLayout = "20060102T150405.000000000Z"

const snapshotContentType = "application/json"

// Snapshot is one published reflection of a schema.
type Snapshot struct {
	Dialect string             `json:"dialect"`
	TakenAt time.Time          `json:"taken_at"`
	Schema  *schema.SchemaInfo `json:"schema"`
}

// SnapshotKey returns the object key of the snapshot of schemaName taken at.
func SnapshotKey(schemaName string, at time.Time) string {
	return fmt.Sprintf("%s/%s.json", schemaName, at.UTC().Format(snapshotTimeLayout))
}

// Publisher writes schema snapshots to a bucket as <schema>/<timestamp>.json.
type Publisher struct {
	store  Store
	bucket string
	now    func() time.Time
	log    *logger.Logger
}

// NewPublisher returns a Publisher writing to bucket (DefaultBucket when
// empty). A nil log discards output.
func NewPublisher(store Store, bucket string, log *logger.Logger) *Publisher {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		store:  store,
		bucket: bucket,
		now:    time.Now,
		log:    log.Component("snapshot"),
	}
}

// Bucket returns the bucket snapshots are written to.
func (p *Publisher) Bucket() string {
	return p.bucket
}

// Publish uploads info as a new snapshot and returns the stored object.
func (p *Publisher) Publish(ctx context.Context, dialect string, info *schema.SchemaInfo) (*ObjectInfo, error) {
	if info == nil || info.Name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "snapshot needs a named schema")
	}

	snap := Snapshot{Dialect: dialect, TakenAt: p.now().UTC(), Schema: info}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode snapshot", err)
	}

	if err := p.store.EnsureBucket(ctx, p.bucket); err != nil {
		return nil, err
	}

	key := SnapshotKey(info.Name, snap.TakenAt)
	obj, err := p.store.PutObject(ctx, p.bucket, key, bytes.NewReader(body), int64(len(body)), snapshotContentType)
	if err != nil {
		return nil, err
	}

	p.log.With().
		Str("bucket", p.bucket).
		Str("key", key).
		Int("tables", len(info.Tables)).
		Logger().
		Info("snapshot published")
	return obj, nil
}

// List returns the snapshot objects of schemaName, oldest first.
func (p *Publisher) List(ctx context.Context, schemaName string) ([]ObjectInfo, error) {
	objs, err := p.store.ListObjects(ctx, p.bucket, ListOptions{Prefix: schemaName + "/", Recursive: true})
	if err != nil {
		return nil, err
	}

	out := objs[:0]
	for _, o := range objs {
		if !o.IsDir && strings.HasSuffix(o.Key, ".json") {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Latest downloads the most recent snapshot of schemaName.
func (p *Publisher) Latest(ctx context.Context, schemaName string) (*Snapshot, error) {
	objs, err := p.List(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "no snapshot of schema %s", schemaName)
	}
	return p.Get(ctx, objs[len(objs)-1].Key)
}

// Get downloads the snapshot stored at key.
func (p *Publisher) Get(ctx context.Context, key string) (*Snapshot, error) {
	obj, err := p.store.GetObject(ctx, p.bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("failed to decode snapshot %s", key), err)
	}
	return &snap, nil
}

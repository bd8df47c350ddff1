// Package ledger is the append-only event log. Appends go through the storage network
// with the same fallback policy as the key-value store; reads are served from the
// local fallback directory only, since the network exposes no scan.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"vaultid/internal/storage/backend"
	"vaultid/internal/storage/localfs"
	"vaultid/internal/storage/metrics"
	"vaultid/pkg/platform/sentinel"
	pstrings "vaultid/pkg/platform/strings"
)

const (
	// Namespace prefixes every event key.
	Namespace = "audit"
	// SystemSubject owns events that carry no identity.
	SystemSubject = "system"

	suffixLength  = 8
	fileExtension = ".json"
	readWorkers   = 8
)

// Record is one persisted event as read back from the fallback directory.
type Record struct {
	Key       string
	Reference string
	Timestamp time.Time
	Body      []byte
}

type Ledger struct {
	primary backend.Backend
	dir     *localfs.Dir
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New builds a ledger writing to primary with dir as fallback. A nil primary writes
// straight to dir.
func New(primary backend.Backend, dir *localfs.Dir, opts ...Option) (*Ledger, error) {
	if dir == nil {
		return nil, fmt.Errorf("ledger: fallback directory is required")
	}
	l := &Ledger{primary: primary, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Append persists body under a fresh key scoped to subject and returns the ledger
// reference: the network transaction hash, or local_<sha256(key)> on fallback.
func (l *Ledger) Append(ctx context.Context, subject string, body []byte) (string, error) {
	key, err := l.newKey(subject)
	if err != nil {
		return "", err
	}

	if l.primary != nil {
		receipt, err := l.primary.Put(ctx, key, body)
		if err == nil {
			return receipt.TxRef, nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return "", fmt.Errorf("append %s: %w", key, err)
		}
		l.metrics.IncFallback("ledger_append")
		if l.logger != nil {
			l.logger.WarnContext(ctx, "storage bridge unavailable, using local fallback",
				"op", "ledger_append",
				"key", key,
				"error", err,
			)
		}
	}

	if err := l.dir.WriteAtomic(localfs.DirLogs, localfs.Sanitize(key)+fileExtension, body); err != nil {
		return "", fmt.Errorf("fallback append %s: %w", key, err)
	}
	return LocalReference(key), nil
}

// EventsFor returns the events of subject found in the fallback directory, oldest first.
// Events that reached the network are not returned.
func (l *Ledger) EventsFor(ctx context.Context, subject string) ([]Record, error) {
	prefix := localfs.Sanitize(Namespace+":"+subjectOrSystem(subject)) + "_"
	names, err := l.dir.List(localfs.DirLogs, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}

	type candidate struct {
		name string
		key  string
		at   time.Time
	}
	candidates := make([]candidate, 0, len(names))
	for _, name := range names {
		ts, suffix, ok := splitFileName(strings.TrimPrefix(name, prefix))
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{
			name: name,
			key:  Namespace + ":" + subjectOrSystem(subject) + ":" + strconv.FormatInt(ts, 10) + ":" + suffix,
			at:   time.Unix(0, ts).UTC(),
		})
	}

	records := make([]Record, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(readWorkers)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			body, err := l.dir.Read(localfs.DirLogs, c.name)
			if err != nil {
				return fmt.Errorf("read event %s: %w", c.name, err)
			}
			records[i] = Record{Key: c.key, Reference: LocalReference(c.key), Timestamp: c.at, Body: body}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Key < records[j].Key
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// LocalReference is the reference returned for events written to the fallback.
func LocalReference(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "local_" + hex.EncodeToString(sum[:])
}

// newKey builds namespace:subject:unixnano:suffix.
func (l *Ledger) newKey(subject string) (string, error) {
	suffix, err := pstrings.RandomAlphanumeric(suffixLength)
	if err != nil {
		return "", fmt.Errorf("event key suffix: %w", err)
	}
	ts := l.now().UnixNano()
	return Namespace + ":" + subjectOrSystem(subject) + ":" + strconv.FormatInt(ts, 10) + ":" + suffix, nil
}

// splitFileName parses "<unixnano>_<suffix>.json". Anything else belongs to another
// subject whose id happens to share our prefix, or is not an event file.
func splitFileName(rest string) (int64, string, bool) {
	rest, ok := strings.CutSuffix(rest, fileExtension)
	if !ok {
		return 0, "", false
	}
	tsPart, suffix, ok := strings.Cut(rest, "_")
	if !ok || len(suffix) != suffixLength || !pstrings.IsAlphanumeric(suffix) {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil || ts < 0 {
		return 0, "", false
	}
	return ts, suffix, true
}

func subjectOrSystem(subject string) string {
	if strings.TrimSpace(subject) == "" {
		return SystemSubject
	}
	return subject
}

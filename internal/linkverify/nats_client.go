package linkverify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/sitelinks/internal/config"
)

const (
	probeKeyPrefix = "probe."
	pageKeyPrefix  = "page."
)

// NATSClient stores probe results and page fingerprints in a JetStream KV
// bucket so they survive across builds and machines.
type NATSClient struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	kv       jetstream.KeyValue
	subject  string
	kvBucket string
}

// NewNATSClient connects and opens (or creates) the KV bucket.
func NewNATSClient(ctx context.Context, cfg config.CacheConfig) (*NATSClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("nats cache is not configured")
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("sitelinks"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &NATSClient{
		conn:     conn,
		js:       js,
		subject:  cfg.Subject,
		kvBucket: cfg.KVBucket,
	}
	if err := client.initKVBucket(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize KV bucket: %w", err)
	}

	slog.Info("NATS probe cache initialized",
		"url", cfg.NATSURL,
		"kv_bucket", cfg.KVBucket,
		"subject", cfg.Subject)
	return client, nil
}

func (c *NATSClient) initKVBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := c.js.KeyValue(ctx, c.kvBucket)
	if err == nil {
		c.kv = kv
		return nil
	}

	kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      c.kvBucket,
		Description: "sitelinks external probe cache",
		MaxBytes:    64 * 1024 * 1024,
		History:     1,
	})
	if err != nil {
		return fmt.Errorf("failed to create KV bucket: %w", err)
	}
	c.kv = kv
	slog.Info("Created KV bucket for probe cache", "bucket", c.kvBucket)
	return nil
}

// kvKey maps arbitrary URLs and paths onto the KV key alphabet.
func kvKey(prefix, s string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '/', r == '=':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_%02x", r)
		}
	}
	return b.String()
}

// GetCachedResult retrieves a cached probe result. A miss returns nil, nil.
func (c *NATSClient) GetCachedResult(ctx context.Context, url string) (*CacheEntry, error) {
	entry, err := c.kv.Get(ctx, kvKey(probeKeyPrefix, url))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	var cached CacheEntry
	if err := json.Unmarshal(entry.Value(), &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &cached, nil
}

// SetCachedResult stores a probe result. TTLs are applied on read.
func (c *NATSClient) SetCachedResult(ctx context.Context, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if _, err := c.kv.Put(ctx, kvKey(probeKeyPrefix, entry.URL), data); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// GetPageEntry returns the record of a page whose external references were
// all healthy, or nil when none is stored.
func (c *NATSClient) GetPageEntry(ctx context.Context, path string) (*PageEntry, error) {
	entry, err := c.kv.Get(ctx, kvKey(pageKeyPrefix, path))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page entry: %w", err)
	}
	var page PageEntry
	if err := json.Unmarshal(entry.Value(), &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page entry: %w", err)
	}
	return &page, nil
}

// SetPageEntry stores the record of a clean page.
func (c *NATSClient) SetPageEntry(ctx context.Context, entry *PageEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal page entry: %w", err)
	}
	if _, err := c.kv.Put(ctx, kvKey(pageKeyPrefix, entry.Path), data); err != nil {
		return fmt.Errorf("failed to put page entry: %w", err)
	}
	return nil
}

// PublishBrokenLink publishes a failure event when a subject is configured.
func (c *NATSClient) PublishBrokenLink(ctx context.Context, event *BrokenLinkEvent) error {
	if c.subject == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event.Timestamp = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := c.js.Publish(ctx, c.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	slog.Debug("Published broken link event", "raw", event.Raw, "source", event.Source)
	return nil
}

// Close closes the NATS connection.
func (c *NATSClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

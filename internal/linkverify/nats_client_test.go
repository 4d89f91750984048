package linkverify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/content"
)

// memoryKV implements the parts of jetstream.KeyValue the client uses.
type memoryKV struct {
	jetstream.KeyValue
	mu   sync.Mutex
	data map[string][]byte
}

type kvEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e kvEntry) Value() []byte { return e.value }

func (kv *memoryKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return kvEntry{value: v}, nil
}

func (kv *memoryKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = append([]byte(nil), value...)
	return uint64(len(kv.data)), nil
}

// publishJS records publishes.
type publishJS struct {
	jetstream.JetStream
	subjects []string
	payloads [][]byte
}

func (js *publishJS) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	js.subjects = append(js.subjects, subject)
	js.payloads = append(js.payloads, payload)
	return &jetstream.PubAck{Stream: "SITELINKS"}, nil
}

func newTestNATSClient(subject string) (*NATSClient, *memoryKV, *publishJS) {
	kv := &memoryKV{data: map[string][]byte{}}
	js := &publishJS{}
	return &NATSClient{js: js, kv: kv, subject: subject, kvBucket: "sitelinks"}, kv, js
}

func TestNATSClient_CachedResults(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestNATSClient("")

	got, err := c.GetCachedResult(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Nil(t, got)

	checked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := &CacheEntry{URL: "https://example.com/a", Status: 404, Reason: ReasonExternalStatus, LastChecked: checked, FailureCount: 2}
	require.NoError(t, c.SetCachedResult(ctx, entry))
	assert.Contains(t, kv.data, kvKey(probeKeyPrefix, "https://example.com/a"))

	got, err = c.GetCachedResult(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 404, got.Status)
	assert.Equal(t, 2, got.FailureCount)
	assert.True(t, got.LastChecked.Equal(checked))

	kv.data[kvKey(probeKeyPrefix, "https://bad.example")] = []byte("{")
	_, err = c.GetCachedResult(ctx, "https://bad.example")
	assert.Error(t, err)
}

func TestNATSClient_PageEntries(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestNATSClient("")

	got, err := c.GetPageEntry(ctx, "guide/index.html")
	require.NoError(t, err)
	assert.Nil(t, got)

	checked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.SetPageEntry(ctx, &PageEntry{Path: "guide/index.html", Fingerprint: "fp", CheckedAt: checked}))
	assert.Contains(t, kv.data, "page.guide/index_2ehtml")

	got, err = c.GetPageEntry(ctx, "guide/index.html")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fp", got.Fingerprint)
	assert.True(t, got.CheckedAt.Equal(checked))
}

func TestNATSClient_PublishBrokenLink(t *testing.T) {
	ctx := context.Background()

	silent, _, silentJS := newTestNATSClient("")
	require.NoError(t, silent.PublishBrokenLink(ctx, &BrokenLinkEvent{Raw: "gone.md"}))
	assert.Empty(t, silentJS.subjects, "no subject configured")

	c, _, js := newTestNATSClient("sitelinks.broken")
	require.NoError(t, c.PublishBrokenLink(ctx, &BrokenLinkEvent{Raw: "gone.md", Source: "index.md"}))
	require.Equal(t, []string{"sitelinks.broken"}, js.subjects)

	var event BrokenLinkEvent
	require.NoError(t, json.Unmarshal(js.payloads[0], &event))
	assert.Equal(t, "gone.md", event.Raw)
	assert.Equal(t, "index.md", event.Source)
	assert.False(t, event.Timestamp.IsZero())
	assert.NoError(t, c.Close())
}

func TestValidate_UsesNATSCache(t *testing.T) {
	ps := newProbeServer(t)
	c, kv, _ := newTestNATSClient("")
	items := []*content.Item{page("index.html", `<a href="`+ps.URL+`/ok">ok</a>`)}

	v := NewValidator(externalConfig(config.ExternalModeFail, false), "", WithHTTPClient(ps.Client()), WithCache(c))
	_, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Contains(t, kv.data, kvKey(pageKeyPrefix, "index.html"))

	second := NewValidator(externalConfig(config.ExternalModeFail, false), "", WithHTTPClient(ps.Client()), WithCache(c))
	report, err := second.Validate(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, ps.count("/ok"), "page entry survives across validators")
}

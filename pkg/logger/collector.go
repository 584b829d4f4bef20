package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Publisher is the flush target for aggregated log entries.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectorConfig struct {
	FlushInterval  time.Duration // periodic flush interval (e.g., 30s)
	CountThreshold int           // max unique entries before a forced flush
	Topic          string
	Publisher      Publisher
}

// AggregatedEntry deduplicates repeated log lines between flushes.
type AggregatedEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Collector aggregates error-level logs and periodically publishes them.
type Collector struct {
	cfg     *CollectorConfig
	entries map[string]*AggregatedEntry
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewCollector(cfg *CollectorConfig) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Collector{
		cfg:     cfg,
		entries: make(map[string]*AggregatedEntry),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Add records one log occurrence, deduplicated by (level, message, fields).
func (c *Collector) Add(level, message string, fields map[string]interface{}) {
	now := time.Now()
	key := c.key(level, message, fields)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	overflow := c.cfg.CountThreshold > 0 && len(c.entries) >= c.cfg.CountThreshold
	c.mu.Unlock()

	if overflow {
		c.flush()
	}
}

// Close stops the flush loop and performs a final flush.
func (c *Collector) Close() {
	c.cancel()
	c.wg.Wait()
	c.flush()
}

func (c *Collector) loop() {
	defer c.wg.Done()
	interval := c.cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.entries) == 0 {
		c.mu.Unlock()
		return
	}
	batch := make([]*AggregatedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, e)
	}
	c.entries = make(map[string]*AggregatedEntry)
	c.mu.Unlock()

	if c.cfg.Publisher == nil || c.cfg.Topic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch)
}

func (c *Collector) key(level, message string, fields map[string]interface{}) string {
	b, _ := json.Marshal(fields)
	sum := sha256.Sum256(append([]byte(level+"|"+message+"|"), b...))
	return fmt.Sprintf("%x", sum[:8])
}

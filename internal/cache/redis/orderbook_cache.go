package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

// BookMirror implements domain.BookMirror with Redis sorted sets and hashes so
// other processes can read the live book.
//
// Key schema, where {key} is "exchange:asset":
//
//	book:{key}:bids     - sorted set of bid prices (score = price)
//	book:{key}:asks     - sorted set of ask prices (score = price)
//	book:{key}:bid:size - hash mapping price -> size for bids
//	book:{key}:ask:size - hash mapping price -> size for asks
//	book:{key}:bbo      - hash with fields "bid" and "ask"
//	book:{key}:meta     - hash with "ts" field (snapshot timestamp)
type BookMirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBookMirror creates a BookMirror backed by the given Client. A positive
// ttl expires every key of a book that stops receiving updates.
func NewBookMirror(c *Client, ttl time.Duration) *BookMirror {
	return &BookMirror{rdb: c.Underlying(), ttl: ttl}
}

// BookKey joins exchange and asset into the mirror key.
func BookKey(exchange, asset string) string {
	return exchange + ":" + asset
}

func bookBidsKey(key string) string    { return "book:" + key + ":bids" }
func bookAsksKey(key string) string    { return "book:" + key + ":asks" }
func bookBidSizeKey(key string) string { return "book:" + key + ":bid:size" }
func bookAskSizeKey(key string) string { return "book:" + key + ":ask:size" }
func bookBBOKey(key string) string     { return "book:" + key + ":bbo" }
func bookMetaKey(key string) string    { return "book:" + key + ":meta" }

// SetSnapshot replaces the mirrored book in a single MULTI/EXEC so readers
// never see one side from an older snapshot.
func (m *BookMirror) SetSnapshot(ctx context.Context, key string, snap domain.BookSnapshot) error {
	keys := []string{
		bookBidsKey(key), bookAsksKey(key),
		bookBidSizeKey(key), bookAskSizeKey(key),
		bookBBOKey(key), bookMetaKey(key),
	}

	pipe := m.rdb.TxPipeline()
	pipe.Del(ctx, keys...)

	writeSide(ctx, pipe, keys[0], keys[2], snap.Bids)
	writeSide(ctx, pipe, keys[1], keys[3], snap.Asks)

	if bid := snap.BestBid(); bid > 0 {
		pipe.HSet(ctx, keys[4], "bid", formatFloat(bid))
	}
	if ask := snap.BestAsk(); ask > 0 {
		pipe.HSet(ctx, keys[4], "ask", formatFloat(ask))
	}
	pipe.HSet(ctx, keys[5], "ts", strconv.FormatInt(snap.UpdatedAt.UnixNano(), 10))

	if m.ttl > 0 {
		for _, k := range keys {
			pipe.Expire(ctx, k, m.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set book snapshot %s: %w", key, err)
	}
	return nil
}

func writeSide(ctx context.Context, pipe redis.Pipeliner, zKey, hKey string, levels []domain.PriceLevel) {
	for _, lvl := range levels {
		priceStr := formatFloat(lvl.Price)
		pipe.ZAdd(ctx, zKey, redis.Z{Score: lvl.Price, Member: priceStr})
		pipe.HSet(ctx, hKey, priceStr, formatFloat(lvl.Size))
	}
}

// GetSnapshot reconstructs the mirrored book. It returns domain.ErrNotFound if
// nothing has been mirrored under key.
func (m *BookMirror) GetSnapshot(ctx context.Context, key string) (domain.BookSnapshot, error) {
	pipe := m.rdb.Pipeline()
	bidsCmd := pipe.ZRevRangeWithScores(ctx, bookBidsKey(key), 0, -1)
	asksCmd := pipe.ZRangeWithScores(ctx, bookAsksKey(key), 0, -1)
	bidSizeCmd := pipe.HGetAll(ctx, bookBidSizeKey(key))
	askSizeCmd := pipe.HGetAll(ctx, bookAskSizeKey(key))
	metaCmd := pipe.HGetAll(ctx, bookMetaKey(key))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: get book snapshot %s: %w", key, err)
	}

	metaVals, _ := metaCmd.Result()
	if len(metaVals) == 0 {
		return domain.BookSnapshot{}, domain.ErrNotFound
	}

	var snap domain.BookSnapshot
	if tsStr, ok := metaVals["ts"]; ok {
		if tsNano, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			snap.UpdatedAt = time.Unix(0, tsNano).UTC()
		}
	}

	bidSizes, _ := bidSizeCmd.Result()
	bidsZ, _ := bidsCmd.Result()
	snap.Bids = readSide(bidsZ, bidSizes)

	askSizes, _ := askSizeCmd.Result()
	asksZ, _ := asksCmd.Result()
	snap.Asks = readSide(asksZ, askSizes)

	return snap, nil
}

func readSide(zs []redis.Z, sizes map[string]string) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(zs))
	for _, z := range zs {
		priceStr, ok := z.Member.(string)
		if !ok {
			continue
		}
		size := 0.0
		if sizeStr, exists := sizes[priceStr]; exists {
			size, _ = strconv.ParseFloat(sizeStr, 64)
		}
		levels = append(levels, domain.PriceLevel{Price: z.Score, Size: size})
	}
	return levels
}

// GetBBO retrieves the mirrored best bid and best ask.
// It returns domain.ErrNotFound if no BBO data exists.
func (m *BookMirror) GetBBO(ctx context.Context, key string) (bestBid, bestAsk float64, err error) {
	vals, err := m.rdb.HGetAll(ctx, bookBBOKey(key)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get bbo %s: %w", key, err)
	}
	if len(vals) == 0 {
		return 0, 0, domain.ErrNotFound
	}
	if bidStr, ok := vals["bid"]; ok {
		bestBid, _ = strconv.ParseFloat(bidStr, 64)
	}
	if askStr, ok := vals["ask"]; ok {
		bestAsk, _ = strconv.ParseFloat(askStr, 64)
	}
	return bestBid, bestAsk, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Compile-time interface check.
var _ domain.BookMirror = (*BookMirror)(nil)

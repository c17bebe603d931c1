package gomarket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

// L2Message is one full-depth order book message. Each level is a
// [price, size] pair; values usually arrive as strings but plain JSON numbers
// are accepted too.
type L2Message struct {
	Timestamp string              `json:"timestamp"`
	Exchange  string              `json:"exchange"`
	Symbol    string              `json:"symbol"`
	Bids      [][]json.RawMessage `json:"bids"`
	Asks      [][]json.RawMessage `json:"asks"`
}

// ParseLevels converts raw [price, size] pairs into price levels. Entries that
// are short, null, non-numeric, negative or out of float64 range are skipped
// and reported as errors wrapping domain.ErrMalformedLevel.
func ParseLevels(raw [][]json.RawMessage) ([]domain.PriceLevel, []error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	var errs []error
	for i, pair := range raw {
		lvl, err := parseLevel(pair)
		if err != nil {
			errs = append(errs, fmt.Errorf("level %d: %w", i, err))
			continue
		}
		levels = append(levels, lvl)
	}
	return levels, errs
}

func parseLevel(pair []json.RawMessage) (domain.PriceLevel, error) {
	if len(pair) < 2 {
		return domain.PriceLevel{}, fmt.Errorf("%w: want [price, size], got %d fields", domain.ErrMalformedLevel, len(pair))
	}
	price, err := decodeNumber(pair[0], "price")
	if err != nil {
		return domain.PriceLevel{}, err
	}
	size, err := decodeNumber(pair[1], "size")
	if err != nil {
		return domain.PriceLevel{}, err
	}
	if price.IsNegative() || size.IsNegative() {
		return domain.PriceLevel{}, fmt.Errorf("%w: negative level %s@%s", domain.ErrMalformedLevel, size, price)
	}
	lvl := domain.PriceLevel{
		Price: price.InexactFloat64(),
		Size:  size.InexactFloat64(),
	}
	if math.IsInf(lvl.Price, 0) || math.IsInf(lvl.Size, 0) {
		return domain.PriceLevel{}, fmt.Errorf("%w: level %s@%s overflows float64", domain.ErrMalformedLevel, size, price)
	}
	return lvl, nil
}

var jsonNull = []byte("null")

// decodeNumber parses one level field. decimal treats a JSON null as zero, so
// null is rejected here before it can become a zero-priced level.
func decodeNumber(raw json.RawMessage, field string) (decimal.Decimal, error) {
	var d decimal.Decimal
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return d, fmt.Errorf("%w: %s is null", domain.ErrMalformedLevel, field)
	}
	if err := d.UnmarshalJSON(raw); err != nil {
		return d, fmt.Errorf("%w: %s %s: %v", domain.ErrMalformedLevel, field, raw, err)
	}
	return d, nil
}

// ToDomainUpdate converts a decoded message into a BookUpdate. Malformed
// levels are dropped and returned alongside the update.
func ToDomainUpdate(msg *L2Message, receivedAt time.Time) (domain.BookUpdate, []error) {
	bids, bidErrs := ParseLevels(msg.Bids)
	asks, askErrs := ParseLevels(msg.Asks)
	return domain.BookUpdate{
		Exchange:   msg.Exchange,
		Asset:      msg.Symbol,
		Bids:       bids,
		Asks:       asks,
		ReceivedAt: receivedAt,
	}, append(bidErrs, askErrs...)
}
